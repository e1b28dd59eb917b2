package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DataResponse mirrors the payload returned by /api/data and /api/refresh and
// carried by the push channel's data_update event.
type DataResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Success   bool     `json:"success"`
	Videos    []Record `json:"videos"`
	Timestamp string   `json:"timestamp"`
}

// ParsedTimestamp returns the server timestamp, or the zero time when absent.
func (r DataResponse) ParsedTimestamp() time.Time {
	return parseTime(r.Timestamp)
}

// AuthStatus mirrors /api/auth_status.
type AuthStatus struct {
	APIType       string `json:"api_type"`
	Configured    bool   `json:"configured"`
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Message       string `json:"message"`
}

// API backends reported in AuthStatus.APIType.
const (
	APITypeOfficial   = "official"
	APITypeThirdParty = "third_party"
	APITypeNone       = "none"
)

// Label renders the auth status as a short badge text.
func (a AuthStatus) Label() string {
	switch a.APIType {
	case APITypeOfficial:
		if a.Authenticated {
			return "Official API authorized"
		}
		return "Official API not authorized"
	case APITypeThirdParty:
		name := strings.TrimSpace(a.Username)
		if name == "" {
			name = "configured"
		}
		return "Third-party API: " + name
	default:
		return "No API configured"
	}
}

// NeedsAuthorization reports whether the official backend is waiting for the user.
func (a AuthStatus) NeedsAuthorization() bool {
	return a.APIType == APITypeOfficial && !a.Authenticated
}

// Record is one analytics row. Fields are passed through untouched; the
// accessors below exist for presentation only.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	dup := make(Record, len(r))
	for k, v := range r {
		dup[k] = v
	}
	return dup
}

// Text returns the first present key rendered as text.
func (r Record) Text(keys ...string) string {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return val
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case json.Number:
			return val.String()
		default:
			return fmt.Sprint(val)
		}
	}
	return ""
}

// Number returns the first present key as a float. Strings such as "18.5%" or
// "32s" are accepted; ok is false when nothing parses.
func (r Record) Number(keys ...string) (float64, bool) {
	for _, key := range keys {
		v, present := r[key]
		if !present || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			return val, true
		case int:
			return float64(val), true
		case int64:
			return float64(val), true
		case json.Number:
			if f, err := val.Float64(); err == nil {
				return f, true
			}
		case string:
			trimmed := strings.TrimSpace(val)
			trimmed = strings.TrimSuffix(trimmed, "%")
			trimmed = strings.TrimSuffix(trimmed, "s")
			if f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// CloneRecords copies the slice and each record so callers cannot alias stored data.
func CloneRecords(records []Record) []Record {
	if len(records) == 0 {
		return nil
	}
	dup := make([]Record, len(records))
	for i, rec := range records {
		dup[i] = rec.Clone()
	}
	return dup
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	// Python isoformat() without a zone.
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999", value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
