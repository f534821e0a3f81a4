package present

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ScaleCursorImage resizes a client-submitted cursor bitmap to the
// output's effective scale using a high-quality scaler, the path taken
// whenever an output has no hardware cursor plane and must composite the
// pointer into the frame itself (§4.J "software cursor").
//
// golang.org/x/image/draw is the same resampling package the rest of the
// pack reaches for (gioui's cmd/gogio and widget/goban, itsManjeet-exp's
// shiny driver) rather than a hand-rolled nearest-neighbor loop.
func ScaleCursorImage(src *image.NRGBA, scale float64) *image.NRGBA {
	if scale == 1 || src == nil {
		return src
	}
	sb := src.Bounds()
	dw := int(float64(sb.Dx())*scale + 0.5)
	dh := int(float64(sb.Dy())*scale + 0.5)
	if dw <= 0 || dh <= 0 {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}

// solidCursorFallback produces a 1x1 opaque dot used when a client
// commits a cursor surface with no buffer attached yet (hidden-until-
// first-frame), so the hardware cursor plane always has a valid image to
// point at rather than leaving stale contents on screen.
func solidCursorFallback(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	return img
}
