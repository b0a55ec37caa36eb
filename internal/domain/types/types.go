// Package types contains the shapes exchanged between the dashboard, the
// analysis API client and the chart adapter.
package types

import "math"

// Request bounds enforced by the analysis backend.
const (
	MinTimePoints = 1
	MaxTimePoints = 100
	MaxTimeEnd    = 5.0
)

// CoefficientList holds polynomial coefficients, highest power first.
type CoefficientList []float64

// Degree returns the polynomial degree, or -1 for an empty list.
func (c CoefficientList) Degree() int {
	return len(c) - 1
}

// Finite reports whether every coefficient is a finite number.
func (c CoefficientList) Finite() bool {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// TransferFunctionRequest is the body sent to POST /api/transfer-function.
type TransferFunctionRequest struct {
	Numerator   CoefficientList `json:"numerator"`
	Denominator CoefficientList `json:"denominator"`
	TimePoints  int             `json:"time_points"`
	TimeEnd     float64         `json:"time_end"`
}

// Validate checks the request against the invariants the backend expects.
// Failures are returned as *RequestError with Kind ErrValidation.
func (r TransferFunctionRequest) Validate() error {
	switch {
	case len(r.Numerator) == 0:
		return NewValidationError("numerator must have at least one coefficient")
	case len(r.Denominator) == 0:
		return NewValidationError("denominator must have at least one coefficient")
	case !r.Numerator.Finite():
		return NewValidationError("numerator coefficients must be finite numbers")
	case !r.Denominator.Finite():
		return NewValidationError("denominator coefficients must be finite numbers")
	case r.TimePoints < MinTimePoints || r.TimePoints > MaxTimePoints:
		return NewValidationError("time points must be between 1 and 100")
	case math.IsNaN(r.TimeEnd) || r.TimeEnd <= 0 || r.TimeEnd > MaxTimeEnd:
		return NewValidationError("simulation time must be greater than 0 and at most 5 seconds")
	}
	return nil
}

// Point is one (time, amplitude) sample.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SeriesMetadata summarizes a response series as reported by the backend.
type SeriesMetadata struct {
	Length         int        `json:"length"`
	TimeRange      [2]float64 `json:"time_range"`
	AmplitudeRange [2]float64 `json:"amplitude_range"`
	FinalValue     float64    `json:"final_value"`
}

// ResponseSeries is one simulated response (step, impulse or ramp).
type ResponseSeries struct {
	Points   []Point        `json:"data"`
	Label    string         `json:"label"`
	Metadata SeriesMetadata `json:"metadata"`
}

// Empty reports whether the series has no samples.
func (s ResponseSeries) Empty() bool {
	return len(s.Points) == 0
}

// SchemaVersion tags which backend contract produced a Result.
type SchemaVersion string

const (
	// SchemaV1 carries step and impulse responses and the nine base metrics.
	SchemaV1 SchemaVersion = "v1"
	// SchemaV2 adds the ramp response, the 5% settling time and the 0-100% rise time.
	SchemaV2 SchemaVersion = "v2"
)

// Result is a validated analysis response. Ramp is non-nil iff Version is SchemaV2.
type Result struct {
	Version          SchemaVersion
	TransferFunction string
	Step             ResponseSeries
	Impulse          ResponseSeries
	Ramp             *ResponseSeries
	StepInfo         StepInfo
	Message          string
}

// HasRamp reports whether the result carries a ramp response.
func (r Result) HasRamp() bool {
	return r.Version == SchemaV2 && r.Ramp != nil
}
