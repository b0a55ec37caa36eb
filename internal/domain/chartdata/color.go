package chartdata

import "strconv"

const backgroundAlpha = 0.2

// Color is an RGBA color with alpha in [0, 1].
type Color struct {
	R, G, B uint8
	A       float64
}

// Series colors.
var (
	StepColor      = Color{R: 75, G: 192, B: 192, A: 1}
	ImpulseColor   = Color{R: 255, G: 99, B: 132, A: 1}
	RampColor      = Color{R: 153, G: 102, B: 255, A: 1}
	ReferenceColor = Color{R: 201, G: 203, B: 207, A: 1}
)

// String renders the CSS form, e.g. "rgba(75, 192, 192, 1)".
func (c Color) String() string {
	return "rgba(" + strconv.Itoa(int(c.R)) + ", " + strconv.Itoa(int(c.G)) + ", " +
		strconv.Itoa(int(c.B)) + ", " + strconv.FormatFloat(c.A, 'f', -1, 64) + ")"
}

// Background returns the translucent fill variant of c.
func (c Color) Background() Color {
	c.A = backgroundAlpha
	return c
}

// Alpha8 returns the alpha channel scaled to 0-255.
func (c Color) Alpha8() uint8 {
	switch {
	case c.A <= 0:
		return 0
	case c.A >= 1:
		return 255
	}
	return uint8(c.A*255 + 0.5)
}
