package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type CreateIncidentRequest struct {
	Title       string     `json:"title" validate:"notblank,max=100"`
	Description string     `json:"description" validate:"notblank"`
	Severity    Severity   `json:"severity" validate:"required,oneof=Low Medium High"`
	ReportedAt  *time.Time `json:"reported_at,omitempty"`
}

// UnmarshalJSON accepts any JSON object so that wrongly typed fields reach the
// validator instead of failing the decode. A non-string title or description
// counts as missing. A non-string severity counts as missing when falsy
// (null, false, 0) and as an unknown level otherwise.
func (r *CreateIncidentRequest) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	req := CreateIncidentRequest{
		Title:       looseString(raw["title"]),
		Description: looseString(raw["description"]),
		Severity:    looseSeverity(raw["severity"]),
	}

	if v, ok := raw["reported_at"]; ok && !isJSONNull(v) {
		var at time.Time
		if err := json.Unmarshal(v, &at); err != nil {
			return fmt.Errorf("reported_at: %w", err)
		}
		req.ReportedAt = &at
	}

	*r = req
	return nil
}

func looseString(v json.RawMessage) string {
	var s string
	if len(v) == 0 || json.Unmarshal(v, &s) != nil {
		return ""
	}
	return s
}

func looseSeverity(v json.RawMessage) Severity {
	if len(v) == 0 || isJSONNull(v) {
		return ""
	}

	var s string
	if json.Unmarshal(v, &s) == nil {
		return Severity(s)
	}

	var b bool
	if json.Unmarshal(v, &b) == nil && !b {
		return ""
	}
	var n float64
	if json.Unmarshal(v, &n) == nil && n == 0 {
		return ""
	}

	// Keep the raw token: it never equals a valid level, so the enum rule reports it.
	return Severity(bytes.TrimSpace(v))
}

func isJSONNull(v []byte) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
