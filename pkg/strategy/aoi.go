package strategy

import "github.com/optics-run/optics/pkg/opticserr"

// AOI is an Area-of-Interest sub-rectangle expressed as percentages of
// the full screenshot, per spec §4.5.3/4.5.5.
type AOI struct {
	X, Y, Width, Height float64
}

// Validate enforces spec §4.5.3's AOI constraints: each component in
// [0,100], and the rectangle must not extend past the frame.
func (a AOI) Validate() error {
	for _, v := range []float64{a.X, a.Y, a.Width, a.Height} {
		if v < 0 || v > 100 {
			return opticserr.New(opticserr.CodeElementInvalidAOI).
				WithDetails("aoi", a)
		}
	}
	if a.X+a.Width > 100 {
		return opticserr.New(opticserr.CodeElementInvalidAOI).
			WithDetails("reason", "x+width exceeds 100").WithDetails("aoi", a)
	}
	if a.Y+a.Height > 100 {
		return opticserr.New(opticserr.CodeElementInvalidAOI).
			WithDetails("reason", "y+height exceeds 100").WithDetails("aoi", a)
	}
	return nil
}

// IsFullFrame reports whether the AOI is equivalent to "no AOI set"
// (spec §8 boundary behavior: x=0,y=0,width=100,height=100 behaves
// identically to AOI not set).
func (a AOI) IsFullFrame() bool {
	return a.X == 0 && a.Y == 0 && a.Width == 100 && a.Height == 100
}

// CropRect is the pixel-space rectangle a percentage AOI maps to within
// a screenshot of the given dimensions.
type CropRect struct {
	OriginX, OriginY int
	Width, Height    int
}

// Crop computes the pixel crop rectangle for this AOI against a
// frameWidth x frameHeight screenshot.
func (a AOI) Crop(frameWidth, frameHeight int) CropRect {
	return CropRect{
		OriginX: int(a.X / 100 * float64(frameWidth)),
		OriginY: int(a.Y / 100 * float64(frameHeight)),
		Width:   int(a.Width / 100 * float64(frameWidth)),
		Height:  int(a.Height / 100 * float64(frameHeight)),
	}
}

// Shift translates a coordinate found within a cropped frame back into
// full-frame coordinates, per spec §4.5.5: "the returned coordinates are
// shifted by the crop origin before being yielded to the caller."
func (c CropRect) Shift(x, y int) (int, int) {
	return c.OriginX + x, c.OriginY + y
}
