package api

import (
	"net/http"

	"github.com/malcong/controle/internal/domain/coeff"
)

type formatResponse struct {
	Numerator        string `json:"numerator"`
	Denominator      string `json:"denominator"`
	TransferFunction string `json:"transfer_function"`
}

// FormatHandler renders coefficient text as polynomials for live previews.
type FormatHandler struct{}

// NewFormatHandler creates a new format handler.
func NewFormatHandler() *FormatHandler {
	return &FormatHandler{}
}

// HandleFormat handles GET /api/format?numerator=..&denominator=.. requests.
// Partial input is formatted as typed; nothing is validated.
func (h *FormatHandler) HandleFormat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	num, den := q.Get("numerator"), q.Get("denominator")
	writeJSON(w, http.StatusOK, formatResponse{
		Numerator:        coeff.FormatText(num),
		Denominator:      coeff.FormatText(den),
		TransferFunction: coeff.FormatTransferFunction(num, den),
	})
}
