package viewport

import (
	"fmt"
	"math"
)

// Extent is a whole-pixel width/height pair.
type Extent struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Celestial is the approximate sky position derived from a native pixel.
//
// The mapping is linear across the image: X spans 0h to 24h of right
// ascension and Y spans -90° to +90° of declination. It is a readable,
// deterministic stand-in and is not invertible to true sky coordinates.
type Celestial struct {
	// RA is formatted as "HHh MMm SSs".
	RA string `json:"ra"`

	// Dec is formatted as `±DD° MM' SS"`.
	Dec string `json:"dec"`

	// RAHours is the unformatted right ascension in hours.
	RAHours float64 `json:"ra_hours"`

	// DecDegrees is the unformatted declination in degrees.
	DecDegrees float64 `json:"dec_degrees"`
}

// ContainerToImagePixel maps a pointer position, relative to its container,
// into native-pixel coordinates.
//
// Parameters:
//   - pointer: Pointer position relative to the container's top-left corner.
//   - container: The container's bounding box.
//   - rendered: The rendered image's bounding box, in the same frame as container.
//   - zoomPercent: Current zoom; the factor zoomPercent/100 is removed from the
//     rendered size before scaling to native pixels.
//   - native: The image's native dimensions.
//
// Per axis the result is:
//
//	(pointer - (rendered.X - container.X)) / (rendered.Width / zoomFactor) * native.Width
//
// The result may lie outside [0, native] when the pointer is outside the
// image; callers decide whether to clip (see ClampToImage). Degenerate input
// (no image, empty rendered box, non-positive zoom) yields {0,0}.
func ContainerToImagePixel(pointer Point, container, rendered Rect, zoomPercent float64, native Size) Point {
	if native.IsZero() || !(zoomPercent > 0) {
		return Point{}
	}
	zf := zoomPercent / 100

	return Point{
		X: toNative(pointer.X, rendered.X-container.X, rendered.Width/zf, native.Width),
		Y: toNative(pointer.Y, rendered.Y-container.Y, rendered.Height/zf, native.Height),
	}
}

// ImagePixelToContainer is the inverse of ContainerToImagePixel: it returns
// the container-relative pointer position that maps to the native pixel p
// under the same rects and zoom.
func ImagePixelToContainer(p Point, container, rendered Rect, zoomPercent float64, native Size) Point {
	if native.IsZero() || !(zoomPercent > 0) {
		return Point{}
	}
	zf := zoomPercent / 100

	return Point{
		X: fromNative(p.X, rendered.X-container.X, rendered.Width/zf, native.Width),
		Y: fromNative(p.Y, rendered.Y-container.Y, rendered.Height/zf, native.Height),
	}
}

func toNative(pointer, offset, span, native float64) float64 {
	if span == 0 {
		return 0
	}
	return (pointer - offset) / span * native
}

func fromNative(px, offset, span, native float64) float64 {
	if span == 0 {
		return 0
	}
	return px/native*span + offset
}

// ClampToImage clips p to [0, native.Width] x [0, native.Height] and reports
// whether p was already inside.
func ClampToImage(p Point, native Size) (Point, bool) {
	if native.IsZero() {
		return Point{}, false
	}
	clamped := Point{
		X: math.Min(math.Max(p.X, 0), native.Width),
		Y: math.Min(math.Max(p.Y, 0), native.Height),
	}
	return clamped, clamped == p
}

// ImagePixelToApproxCelestial projects a native pixel onto the approximate
// celestial grid.
//
// RA is px/width*24 hours; Dec is py/height*180-90 degrees. Both are
// decomposed with a floor cascade (whole unit, then minutes of the
// remainder, then seconds of that remainder) and zero-padded to two digits.
// Dec carries an explicit sign; its minutes and seconds are magnitudes.
//
// With no image loaded the result is the zero position, "00h 00m 00s" and
// `+00° 00' 00"`.
func ImagePixelToApproxCelestial(px, py float64, native Size) Celestial {
	var raHours, decDeg float64
	if !native.IsZero() {
		raHours = px / native.Width * 24
		decDeg = py/native.Height*180 - 90
	}

	h, m, s := floorCascade(raHours)
	sign := "+"
	if decDeg < 0 {
		sign = "-"
	}
	d, am, as := floorCascade(math.Abs(decDeg))

	return Celestial{
		RA:         fmt.Sprintf("%02dh %02dm %02ds", h, m, s),
		Dec:        fmt.Sprintf("%s%02d° %02d' %02d\"", sign, d, am, as),
		RAHours:    raHours,
		DecDegrees: decDeg,
	}
}

// floorCascade splits v into whole units, minutes, and seconds, each
// truncating the remainder of the previous step.
func floorCascade(v float64) (int, int, int) {
	whole := math.Floor(v)
	minutes := (v - whole) * 60
	wholeMin := math.Floor(minutes)
	seconds := math.Floor((minutes - wholeMin) * 60)
	return int(whole), int(wholeMin), int(seconds)
}

// EffectivePixelScale returns the arcseconds covered by one display pixel at
// the given zoom, formatted to four decimals with a `"/px` suffix.
//
// At 100% zoom the result is the pixel scale itself. A non-positive zoom
// yields the zero scale.
func EffectivePixelScale(pixelScale, zoomPercent float64) string {
	if !(zoomPercent > 0) {
		return fmt.Sprintf("%.4f\"/px", 0.0)
	}
	return fmt.Sprintf("%.4f\"/px", pixelScale/(zoomPercent/100))
}

// VisibleNativeExtent returns how many native pixels fit within one
// viewport extent at the given zoom, rounded to whole pixels.
func VisibleNativeExtent(native Size, zoomPercent float64) Extent {
	if native.IsZero() || !(zoomPercent > 0) {
		return Extent{}
	}
	zf := zoomPercent / 100
	return Extent{
		Width:  int(math.Round(native.Width / zf)),
		Height: int(math.Round(native.Height / zf)),
	}
}
