package geocode

import "errors"

var (
	// ErrNetwork indicates a transport failure or a non-2xx status.
	ErrNetwork = errors.New("geocoder network error")
	// ErrParse indicates the response body was not the expected JSON.
	ErrParse = errors.New("geocoder parse error")
)
