package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"osmandlink/pkg/logging"
)

// maxParamLen drops long attribute values (uuids, stack traces) from the
// one-line summary.
const maxParamLen = 20

// key=value or key="value with spaces"
var logAttrRe = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// handleLatestLog returns the last captured log line, condensed.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"log": condenseLogLine(logging.GlobalLogCapture.GetLastLine()),
	})
}

// condenseLogLine turns a slog text line into "HH:MM:SS msg (k=v, ...)".
// Level is dropped and attributes are sorted; lines that do not parse are
// returned unchanged.
func condenseLogLine(raw string) string {
	var clock, msg string
	var attrs []string

	for _, m := range logAttrRe.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				clock = t.Format("15:04:05")
			}
		case "level":
		case "msg":
			msg = val
		default:
			if len(val) <= maxParamLen {
				attrs = append(attrs, key+"="+val)
			}
		}
	}

	if msg == "" {
		return raw
	}
	out := msg
	if clock != "" {
		out = clock + " " + msg
	}
	if len(attrs) == 0 {
		return out
	}
	sort.Strings(attrs)
	return fmt.Sprintf("%s (%s)", out, strings.Join(attrs, ", "))
}
