package coeff

import (
	"math"
	"strconv"
	"strings"
)

// FormatPolynomial renders coefficient tokens as a polynomial in s, e.g.
// ["1","5.6","16"] -> "s^2 + 5.6s + 16". Zero terms are skipped. An empty
// list is "0" and a single token is returned unchanged.
func FormatPolynomial(tokens []string) string {
	switch len(tokens) {
	case 0:
		return "0"
	case 1:
		return tokens[0]
	}

	var b strings.Builder
	for i, tok := range tokens {
		power := len(tokens) - 1 - i
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) {
			// partially typed input is shown as entered
			if b.Len() > 0 {
				b.WriteString(" + ")
			}
			b.WriteString(tok)
			continue
		}
		if v == 0 {
			continue
		}
		switch {
		case b.Len() == 0 && v < 0:
			b.WriteString("-")
		case b.Len() > 0 && v < 0:
			b.WriteString(" - ")
		case b.Len() > 0:
			b.WriteString(" + ")
		}
		b.WriteString(term(math.Abs(v), power))
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

func term(abs float64, power int) string {
	num := strconv.FormatFloat(abs, 'f', -1, 64)
	switch {
	case power == 0:
		return num
	case power == 1 && abs == 1:
		return "s"
	case power == 1:
		return num + "s"
	case abs == 1:
		return "s^" + strconv.Itoa(power)
	default:
		return num + "s^" + strconv.Itoa(power)
	}
}

// FormatText tokenizes a coefficient field and formats it.
func FormatText(text string) string {
	return FormatPolynomial(Tokens(text))
}

// FormatTransferFunction renders "G(s) = (N) / (D)", or "" if either side is blank.
func FormatTransferFunction(numerator, denominator string) string {
	if strings.TrimSpace(numerator) == "" || strings.TrimSpace(denominator) == "" {
		return ""
	}
	return "G(s) = (" + FormatText(numerator) + ") / (" + FormatText(denominator) + ")"
}
