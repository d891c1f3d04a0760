package bsapi

import "encoding/json"

// LoginRequest is the credential payload for POST /user/_login.
// The upstream suite uses dotted form-style keys in its JSON bodies.
type LoginRequest struct {
	ApplicationCode string `json:"application.code"`
	Email           string `json:"user.email"`
	Password        string `json:"user.password"`
	Device          string `json:"device"`
}

// PartnerRef is a bare partner code on a login response.
type PartnerRef struct {
	Code string `json:"code"`
}

// LoginResponse is the auth service reply. Code is "OK" on success; any
// other value means the credentials were rejected.
type LoginResponse struct {
	Code        string       `json:"code"`
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Partners    []PartnerRef `json:"partners"`
	AccessToken string       `json:"access_token"`
}

// PartnerRecord is one resolved partner from the partner master.
type PartnerRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SummaryQuery scopes a statistics request.
type SummaryQuery struct {
	PartnerID string
	Site      string
	StartDate string
	EndDate   string // empty means a single-day window
}

// ShiftRow is one raw upstream shift record. The identity fields every
// site reports are promoted to typed fields; all remaining keys land in
// Metrics untouched, values exactly as the wire sent them (number,
// string, or nil). Upstream data quality is not guaranteed, so nothing
// here is coerced.
type ShiftRow struct {
	Day        string
	Shift      int
	Supervisor string
	Metrics    map[string]any
}

// UnmarshalJSON splits known identity keys from the open metric set.
func (r *ShiftRow) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}

	if s, ok := m["production_day"].(string); ok {
		r.Day = s
	}
	if s, ok := m["supervisor"].(string); ok {
		r.Supervisor = s
	}
	r.Shift = shiftNo(m["shift_no"])

	delete(m, "production_day")
	delete(m, "supervisor")
	delete(m, "shift_no")
	r.Metrics = m
	return nil
}

// shiftNo tolerates shift numbers arriving as JSON numbers or strings.
func shiftNo(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		var parsed float64
		if err := json.Unmarshal([]byte(n), &parsed); err == nil {
			return int(parsed)
		}
	}
	return 0
}

// TechSnapshot is one point-in-time sensor reading from the sinter line
// technology endpoint. The metric fields stay untyped for the same
// reason ShiftRow.Metrics does.
type TechSnapshot struct {
	Shift           int    `json:"shift_no"`
	SuctionPressure any    `json:"suction_pressure"`
	IgnitionTemp    any    `json:"ignition_temp"`
	Duct12Pressure  any    `json:"duct12_pressure"`
	GasPressure     any    `json:"gas_pressure"`
	DamperOpening   any    `json:"damper_opening"`
	RecordedAt      any    `json:"recorded_at"`
}

// listResponse is the upstream collection envelope shared by every
// read endpoint.
type listResponse[T any] struct {
	Status string `json:"status"`
	Table  string `json:"table"`
	Count  int    `json:"count"`
	Next   bool   `json:"next"`
	Data   []T    `json:"data"`
}
