package present

import "math"

// BuildGammaLUT constructs an equally-spaced lookup table of size steps
// for a simple power-law gamma curve, the shape §4.J's ColorState.Gamma
// field holds until it is uploaded as a DRM GAMMA_LUT property blob.
//
// golang.org/x/image ships palette and color-model machinery but no
// curve-fitting or LUT helper, so this stays on the standard math
// package rather than forcing an unrelated import.
func BuildGammaLUT(steps int, gamma float64) []uint16 {
	if steps <= 1 {
		return []uint16{0xffff}
	}
	lut := make([]uint16, steps)
	for i := 0; i < steps; i++ {
		x := float64(i) / float64(steps-1)
		y := math.Pow(x, gamma)
		lut[i] = uint16(y*65535 + 0.5)
	}
	return lut
}
