// Package coeff parses comma-separated coefficient fields and formats
// coefficient lists as polynomials in s.
package coeff

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/malcong/controle/internal/domain/types"
)

// Tokens splits text on commas, trims whitespace and drops empty tokens.
// Order is preserved: highest-degree term first.
func Tokens(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Parse converts a coefficient field into a CoefficientList. Empty input,
// non-numeric tokens and non-finite values fail with a validation error.
func Parse(text string) (types.CoefficientList, error) {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return nil, types.NewValidationError("enter at least one coefficient")
	}
	out := make(types.CoefficientList, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, &types.RequestError{
				Kind:    types.ErrValidation,
				Message: fmt.Sprintf("invalid coefficient %q", tok),
				Err:     fmt.Errorf("%w: %w", ErrMalformed, err),
			}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &types.RequestError{
				Kind:    types.ErrValidation,
				Message: fmt.Sprintf("coefficient %q is not a finite number", tok),
				Err:     ErrNotFinite,
			}
		}
		out[i] = v
	}
	return out, nil
}

// ParsePair parses numerator and denominator fields, reporting which side failed.
func ParsePair(numerator, denominator string) (types.CoefficientList, types.CoefficientList, error) {
	num, err := Parse(numerator)
	if err != nil {
		return nil, nil, prefixed("numerator", err)
	}
	den, err := Parse(denominator)
	if err != nil {
		return nil, nil, prefixed("denominator", err)
	}
	return num, den, nil
}

func prefixed(side string, err error) error {
	re, ok := err.(*types.RequestError)
	if !ok {
		return err
	}
	cp := *re
	cp.Message = side + ": " + re.Message
	return &cp
}
