package tfapi

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/malcong/controle/internal/domain/types"
)

// errorBody is the failure shape: FastAPI's {"detail": ...} or an
// application-level {"success": false, "message": ...}.
type errorBody struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// text applies the precedence detail > message. Empty means use a generic message.
func (b errorBody) text() string {
	if d := detailText(b.Detail); d != "" {
		return d
	}
	return strings.TrimSpace(b.Message)
}

// detailText accepts a plain string or a validation array of {"msg": ...}.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(items))
	for _, it := range items {
		if m := strings.TrimSpace(it.Msg); m != "" {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, "; ")
}

type wireMetadata struct {
	Length         *int      `json:"length"`
	TimeRange      []float64 `json:"time_range"`
	AmplitudeRange []float64 `json:"amplitude_range"`
	FinalValue     *float64  `json:"final_value"`
}

type wireSeries struct {
	Data     []types.Point `json:"data"`
	Label    string        `json:"label"`
	Metadata *wireMetadata `json:"metadata"`
}

type wireResponse struct {
	errorBody

	Success          *bool          `json:"success"`
	TransferFunction string         `json:"transfer_function"`
	StepResponse     *wireSeries    `json:"step_response"`
	ImpulseResponse  *wireSeries    `json:"impulse_response"`
	RampResponse     *wireSeries    `json:"ramp_response"`
	StepInfo         types.StepInfo `json:"step_info"`
}

// decodeResult validates a 2xx body into a Result.
func decodeResult(status int, raw []byte) (types.Result, error) {
	var w wireResponse
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.Result{}, domainError(status, "", fmt.Errorf("%w: %w", ErrMalformedResponse, err))
	}
	if w.Success == nil {
		return types.Result{}, domainError(status, "", fmt.Errorf("%w: missing success flag", ErrMalformedResponse))
	}
	if !*w.Success {
		return types.Result{}, domainError(status, w.text(), ErrRejected)
	}

	step, err := w.StepResponse.series("step_response", "Step Response")
	if err != nil {
		return types.Result{}, domainError(status, "", err)
	}
	impulse, err := w.ImpulseResponse.series("impulse_response", "Impulse Response")
	if err != nil {
		return types.Result{}, domainError(status, "", err)
	}

	res := types.Result{
		Version:          types.SchemaV1,
		TransferFunction: w.TransferFunction,
		Step:             step,
		Impulse:          impulse,
		StepInfo:         w.StepInfo,
		Message:          w.Message,
	}
	if w.RampResponse != nil {
		ramp, err := w.RampResponse.series("ramp_response", "Ramp Response")
		if err != nil {
			return types.Result{}, domainError(status, "", err)
		}
		res.Version = types.SchemaV2
		res.Ramp = &ramp
	} else {
		// v1 bodies never carry the v2-only metrics.
		res.StepInfo.RiseTime0To100 = nil
		res.StepInfo.SettlingTime5 = nil
	}
	return res, nil
}

func (w *wireSeries) series(field, defaultLabel string) (types.ResponseSeries, error) {
	if w == nil {
		return types.ResponseSeries{}, fmt.Errorf("%w: %s missing", ErrMalformedResponse, field)
	}
	if len(w.Data) == 0 {
		return types.ResponseSeries{}, fmt.Errorf("%w: %s has no samples", ErrMalformedResponse, field)
	}
	for i, p := range w.Data {
		if !finite(p.X) || !finite(p.Y) {
			return types.ResponseSeries{}, fmt.Errorf("%w: %s sample %d is not finite", ErrMalformedResponse, field, i)
		}
	}

	s := types.ResponseSeries{
		Points: w.Data,
		Label:  w.Label,
	}
	if s.Label == "" {
		s.Label = defaultLabel
	}
	s.Metadata = summarize(w.Data)

	if md := w.Metadata; md != nil {
		if md.Length != nil && *md.Length != 0 && *md.Length != len(w.Data) {
			return types.ResponseSeries{}, fmt.Errorf("%w: %s length %d does not match %d samples",
				ErrMalformedResponse, field, *md.Length, len(w.Data))
		}
		if len(md.TimeRange) == 2 {
			s.Metadata.TimeRange = [2]float64{md.TimeRange[0], md.TimeRange[1]}
		}
		if len(md.AmplitudeRange) == 2 {
			s.Metadata.AmplitudeRange = [2]float64{md.AmplitudeRange[0], md.AmplitudeRange[1]}
		}
		if md.FinalValue != nil {
			s.Metadata.FinalValue = *md.FinalValue
		}
	}
	return s, nil
}

// summarize derives metadata from the samples; reported values override it.
func summarize(pts []types.Point) types.SeriesMetadata {
	md := types.SeriesMetadata{Length: len(pts)}
	if len(pts) == 0 {
		return md
	}
	lo, hi := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.Y)
	}
	md.TimeRange = [2]float64{pts[0].X, pts[len(pts)-1].X}
	md.AmplitudeRange = [2]float64{lo, hi}
	md.FinalValue = pts[len(pts)-1].Y
	return md
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
