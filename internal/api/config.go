package api

import (
	"net/http"

	"osmandlink/pkg/config"
)

// ConfigHandler exposes the effective settings a host page needs. The
// configuration is read-only at runtime, so there is no update endpoint.
type ConfigHandler struct {
	cfg *config.Config
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	Hotkey             string `json:"hotkey"`
	LinkStyle          string `json:"link_style"`
	LinkHost           string `json:"link_host"`
	Zoom               int    `json:"zoom"`
	Decimals           int    `json:"decimals"`
	Limit              int    `json:"limit"`
	CountryCodes       string `json:"country_codes"`
	AppendHotkey       string `json:"append_hotkey"`
	AppendLeft         string `json:"append_left"`
	AppendRight        string `json:"append_right"`
	UseGeocoderAddress bool   `json:"use_geocoder_address"`
	AddressLabel       string `json:"address_label"`
	LinkLabel          string `json:"link_label"`
	NewlineReplacement string `json:"newline_replacement"`
	KeepOriginal       bool   `json:"keep_original"`
	Debug              bool   `json:"debug"`
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := h.cfg
	writeJSON(w, http.StatusOK, ConfigResponse{
		Hotkey:             c.Hotkey.String(),
		LinkStyle:          string(c.Link.Style),
		LinkHost:           c.Link.Host,
		Zoom:               c.Link.Zoom,
		Decimals:           c.Link.Decimals,
		Limit:              c.Geocoder.Limit,
		CountryCodes:       c.Geocoder.CountryCodes,
		AppendHotkey:       string(c.Append.Hotkey),
		AppendLeft:         string(c.Append.Left),
		AppendRight:        string(c.Append.Right),
		UseGeocoderAddress: c.Append.UseGeocoderAddress,
		AddressLabel:       c.Append.AddressLabel,
		LinkLabel:          c.Append.LinkLabel,
		NewlineReplacement: c.Append.NewlineReplacement,
		KeepOriginal:       c.Clipboard.KeepOriginal,
		Debug:              c.Debug,
	})
}
