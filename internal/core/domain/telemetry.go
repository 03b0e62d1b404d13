package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Telemetry is a snapshot of live wearable readings attached to a single
// chat request. It is never persisted. Every field is optional and
// unrecognised JSON keys are ignored.
type Telemetry struct {
	HeartRate     Reading `json:"heartRate,omitempty"`
	Steps         Reading `json:"steps,omitempty"`
	Calories      Reading `json:"calories,omitempty"`
	Sleep         Reading `json:"sleep,omitempty"`
	BloodPressure Reading `json:"bloodPressure,omitempty"`
	SpO2          Reading `json:"spO2,omitempty"`
	Temperature   Reading `json:"temperature,omitempty"`
}

// IsEmpty returns true if no recognised reading is present.
func (t *Telemetry) IsEmpty() bool {
	if t == nil {
		return true
	}
	for _, r := range []Reading{
		t.HeartRate, t.Steps, t.Calories, t.Sleep,
		t.BloodPressure, t.SpO2, t.Temperature,
	} {
		if r.Present() {
			return false
		}
	}
	return true
}

// Reading is a single telemetry value kept in its textual form.
// Devices send numbers ("72", 98.6) as well as strings ("120/80"),
// so both JSON shapes decode into the same type.
type Reading string

// UnmarshalJSON accepts JSON numbers and strings. Null, numeric zero,
// an empty string and any other shape decode to an absent reading. A
// string such as "0" is kept.
func (r *Reading) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*r = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Reading(strings.TrimSpace(s))
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		if f, err := n.Float64(); err == nil && f == 0 {
			*r = ""
			return nil
		}
		*r = Reading(n.String())
	default:
		*r = ""
	}
	return nil
}

// Present reports whether the reading carries a value.
func (r Reading) Present() bool {
	return strings.TrimSpace(string(r)) != ""
}

// String returns the reading as sent by the device.
func (r Reading) String() string {
	return strings.TrimSpace(string(r))
}
