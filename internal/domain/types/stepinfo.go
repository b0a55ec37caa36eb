package types

import "fmt"

// StepInfo holds step-response performance metrics. A nil field means the
// backend could not compute it for this system (unstable, no overshoot, ...).
//
// Bands and definitions:
//   - RiseTime: 10% to 90% of the steady-state value.
//   - RiseTime0To100: first 0% crossing to first 100% crossing (v2 only).
//   - SettlingTime: 2% band. SettlingTime5: 5% band (v2 only).
//   - Overshoot, Undershoot: percent of the steady-state value.
type StepInfo struct {
	RiseTime         *float64 `json:"RiseTime"`
	RiseTime0To100   *float64 `json:"RiseTime_0_to_100,omitempty"`
	SettlingTime     *float64 `json:"SettlingTime"`
	SettlingTime5    *float64 `json:"SettlingTime5,omitempty"`
	SettlingMin      *float64 `json:"SettlingMin"`
	SettlingMax      *float64 `json:"SettlingMax"`
	Overshoot        *float64 `json:"Overshoot"`
	Undershoot       *float64 `json:"Undershoot"`
	Peak             *float64 `json:"Peak"`
	PeakTime         *float64 `json:"PeakTime"`
	SteadyStateValue *float64 `json:"SteadyStateValue"`
}

// Metric is one displayable row of StepInfo.
type Metric struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Unit      string   `json:"unit,omitempty"`
	Precision int      `json:"-"`
	Value     *float64 `json:"value"`
}

// Display formats the value with its precision and unit, or "N/A" when unset.
func (m Metric) Display() string {
	if m.Value == nil {
		return "N/A"
	}
	s := fmt.Sprintf("%.*f", m.Precision, *m.Value)
	if m.Unit != "" {
		s += " " + m.Unit
	}
	return s
}

// Metrics lists the rows to display for the given schema version, in card order.
// v2-only metrics are omitted for v1 results.
func (s StepInfo) Metrics(v SchemaVersion) []Metric {
	rows := []Metric{
		{Key: "RiseTime", Label: "Rise time (10-90%)", Unit: "s", Precision: 3, Value: s.RiseTime},
	}
	if v == SchemaV2 {
		rows = append(rows, Metric{Key: "RiseTime_0_to_100", Label: "Rise time (0-100%)", Unit: "s", Precision: 3, Value: s.RiseTime0To100})
	}
	rows = append(rows, Metric{Key: "SettlingTime", Label: "Settling time (2%)", Unit: "s", Precision: 3, Value: s.SettlingTime})
	if v == SchemaV2 {
		rows = append(rows, Metric{Key: "SettlingTime5", Label: "Settling time (5%)", Unit: "s", Precision: 3, Value: s.SettlingTime5})
	}
	return append(rows,
		Metric{Key: "SettlingMin", Label: "Settling min", Precision: 3, Value: s.SettlingMin},
		Metric{Key: "SettlingMax", Label: "Settling max", Precision: 3, Value: s.SettlingMax},
		Metric{Key: "Overshoot", Label: "Overshoot", Unit: "%", Precision: 2, Value: s.Overshoot},
		Metric{Key: "Undershoot", Label: "Undershoot", Unit: "%", Precision: 2, Value: s.Undershoot},
		Metric{Key: "Peak", Label: "Peak value", Precision: 3, Value: s.Peak},
		Metric{Key: "PeakTime", Label: "Peak time", Unit: "s", Precision: 3, Value: s.PeakTime},
		Metric{Key: "SteadyStateValue", Label: "Steady-state value", Precision: 3, Value: s.SteadyStateValue},
	)
}
