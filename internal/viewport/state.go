package viewport

import "math"

const (
	// MinZoomPercent is the smallest zoom any operation may produce.
	MinZoomPercent = 25.0

	// MaxZoomPercent is the largest zoom any operation may produce.
	MaxZoomPercent = 5000.0

	// DefaultZoomPercent is the zoom applied on reset and on every image load.
	DefaultZoomPercent = 100.0

	// DefaultPixelScale is the arcseconds-per-native-pixel used when the
	// loaded image does not supply one.
	DefaultPixelScale = 0.031
)

// Point is a 2D position with floating-point coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair. For native image sizes the zero value is the
// "no image loaded" sentinel.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether either dimension is non-positive, which every
// transform treats as "no image loaded".
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is an axis-aligned bounding box in display pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Snapshot is a read-only copy of a State at one point in time.
type Snapshot struct {
	ZoomPercent float64 `json:"zoom_percent"`
	Pan         Point   `json:"pan"`
	NativeSize  Size    `json:"native_size"`
	PixelScale  float64 `json:"pixel_scale"`
}

// HasImage reports whether the snapshot describes a loaded image.
func (s Snapshot) HasImage() bool {
	return !s.NativeSize.IsZero()
}

// State holds the zoom factor, pan offset, and loaded image dimensions of one
// viewport session.
//
// The zero value is not ready for use; call NewState.
type State struct {
	zoomPercent float64
	pan         Point
	native      Size
	pixelScale  float64
}

// NewState returns a State at 100% zoom with no image loaded.
func NewState() *State {
	return &State{
		zoomPercent: DefaultZoomPercent,
		pixelScale:  DefaultPixelScale,
	}
}

// SetImage records the native dimensions and pixel scale of a newly loaded
// image and resets zoom to 100% and pan to {0,0}.
//
// Negative dimensions are stored as 0 (no image). A non-positive or
// non-finite pixelScale is replaced by DefaultPixelScale.
func (s *State) SetImage(native Size, pixelScale float64) {
	s.native = Size{
		Width:  math.Max(0, finiteOr(native.Width, 0)),
		Height: math.Max(0, finiteOr(native.Height, 0)),
	}
	if !(pixelScale > 0) || math.IsInf(pixelScale, 0) {
		pixelScale = DefaultPixelScale
	}
	s.pixelScale = pixelScale
	s.zoomPercent = DefaultZoomPercent
	s.pan = Point{}
}

// SetZoom sets the zoom, clamped to [MinZoomPercent, MaxZoomPercent].
// A NaN percent leaves the zoom unchanged.
func (s *State) SetZoom(percent float64) {
	if math.IsNaN(percent) {
		return
	}
	s.zoomPercent = ClampZoom(percent)
}

// SetPan sets the render-time translation in display pixels.
func (s *State) SetPan(offset Point) {
	s.pan = Point{X: finiteOr(offset.X, s.pan.X), Y: finiteOr(offset.Y, s.pan.Y)}
}

// ZoomPercent returns the current zoom.
func (s *State) ZoomPercent() float64 { return s.zoomPercent }

// Pan returns the current pan offset.
func (s *State) Pan() Point { return s.pan }

// NativeSize returns the loaded image's native dimensions, or {0,0}.
func (s *State) NativeSize() Size { return s.native }

// PixelScale returns the arcseconds per native pixel at 100% zoom.
func (s *State) PixelScale() float64 { return s.pixelScale }

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		ZoomPercent: s.zoomPercent,
		Pan:         s.pan,
		NativeSize:  s.native,
		PixelScale:  s.pixelScale,
	}
}

// ClampZoom limits percent to [MinZoomPercent, MaxZoomPercent].
func ClampZoom(percent float64) float64 {
	if percent < MinZoomPercent {
		return MinZoomPercent
	}
	if percent > MaxZoomPercent {
		return MaxZoomPercent
	}
	return percent
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
