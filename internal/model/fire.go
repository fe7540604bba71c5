package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Position is a [latitude, longitude] pair in decimal degrees.
// It marshals as a two element JSON array, matching the dashboard feed format.
type Position [2]float64

// Lat returns the latitude in degrees
func (p Position) Lat() float64 { return p[0] }

// Lon returns the longitude in degrees
func (p Position) Lon() float64 { return p[1] }

// String implements fmt.Stringer
func (p Position) String() string {
	return fmt.Sprintf("%.4f,%.4f", p[0], p[1])
}

// FireDetection is a single satellite hotspot reading
type FireDetection struct {
	ID          string     `json:"id"`
	Position    Position   `json:"position"`
	FRP         *float64   `json:"frp,omitempty"` // Fire radiative power (MW), nil when the sensor did not report it
	Confidence  Confidence `json:"confidence"`    // Label ("High", "Nominal", "Low") or 0-100 value
	Intensity   float64    `json:"intensity"`     // Display ratio, frp / assumed max
	ImpactScore float64    `json:"impactScore"`   // Set by the attribution scorer, 0 when not upwind
}

// FRPOr returns the fire radiative power, or def if it is absent.
func (f FireDetection) FRPOr(def float64) float64 {
	if f.FRP == nil {
		return def
	}
	return *f.FRP
}

// Float returns a pointer to v. Handy for building detections with FRP set.
func Float(v float64) *float64 {
	return &v
}

// Confidence levels used by the simulated and backup feeds
const (
	ConfidenceHigh    = "High"
	ConfidenceNominal = "Nominal"
	ConfidenceLow     = "Low"
)

// Confidence is either a categorical label or a continuous 0-100 value.
// It round-trips through JSON in whichever shape it was decoded from.
type Confidence struct {
	Label   string
	Value   float64
	Numeric bool
}

// LabelConfidence builds a categorical confidence
func LabelConfidence(label string) Confidence {
	return Confidence{Label: label}
}

// NumericConfidence builds a continuous confidence
func NumericConfidence(v float64) Confidence {
	return Confidence{Value: v, Numeric: true}
}

// IsHigh reports whether the confidence is the "High" label.
// Numeric confidences never count as high; the zone score is a coarse binary bucket.
func (c Confidence) IsHigh() bool {
	return !c.Numeric && strings.EqualFold(c.Label, ConfidenceHigh)
}

// IsZero reports whether no confidence was recorded
func (c Confidence) IsZero() bool {
	return !c.Numeric && c.Label == ""
}

// String implements fmt.Stringer
func (c Confidence) String() string {
	if c.Numeric {
		return fmt.Sprintf("%g", c.Value)
	}
	return c.Label
}

// MarshalJSON implements json.Marshaler
func (c Confidence) MarshalJSON() ([]byte, error) {
	if c.Numeric {
		return json.Marshal(c.Value)
	}
	return json.Marshal(c.Label)
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Confidence) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Confidence{}
		return nil
	}

	if data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return fmt.Errorf("confidence label: %w", err)
		}
		*c = LabelConfidence(label)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("confidence value: %w", err)
	}
	*c = NumericConfidence(v)
	return nil
}
