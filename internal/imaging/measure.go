package imaging

import (
	"fmt"
	"math"

	"github.com/ironsheep/skyscope-mcp/internal/viewport"
)

// DistanceResult describes the separation between two native pixels.
type DistanceResult struct {
	DistancePixels        float64 `json:"distance_pixels"`
	DeltaX                float64 `json:"delta_x"`
	DeltaY                float64 `json:"delta_y"`
	AngleDegrees          float64 `json:"angle_degrees"` // 0 = right, 90 = down
	DistancePercentWidth  float64 `json:"distance_percent_width"`
	DistancePercentHeight float64 `json:"distance_percent_height"`

	// SeparationArcsec is the angular separation at the image's native
	// pixel scale; it does not depend on zoom.
	SeparationArcsec float64 `json:"separation_arcsec"`
	Separation       string  `json:"separation"`
}

// MeasureDistance measures from a to b in native pixels on an image of size
// native with the given arcsec-per-pixel scale.
func MeasureDistance(a, b viewport.Point, native viewport.Size, pixelScale float64) (*DistanceResult, error) {
	if native.IsZero() {
		return nil, fmt.Errorf("no image loaded")
	}

	dx := b.X - a.X
	dy := b.Y - a.Y
	distance := math.Hypot(dx, dy)
	angle := math.Atan2(dy, dx) * 180 / math.Pi
	arcsec := distance * pixelScale

	return &DistanceResult{
		DistancePixels:        math.Round(distance*100) / 100,
		DeltaX:                dx,
		DeltaY:                dy,
		AngleDegrees:          math.Round(angle*10) / 10,
		DistancePercentWidth:  math.Round(distance/native.Width*1000) / 10,
		DistancePercentHeight: math.Round(distance/native.Height*1000) / 10,
		SeparationArcsec:      math.Round(arcsec*10000) / 10000,
		Separation:            FormatArcsec(arcsec),
	}, nil
}

// FormatArcsec renders an angle given in arcseconds using the largest
// natural unit: `12.34"`, `3' 20.0"` or `1° 02' 03"`.
func FormatArcsec(arcsec float64) string {
	switch {
	case arcsec < 60:
		return fmt.Sprintf("%.2f\"", arcsec)
	case arcsec < 3600:
		m := math.Floor(arcsec / 60)
		return fmt.Sprintf("%d' %04.1f\"", int(m), arcsec-m*60)
	default:
		d := math.Floor(arcsec / 3600)
		rest := arcsec - d*3600
		m := math.Floor(rest / 60)
		return fmt.Sprintf("%d° %02d' %02d\"", int(d), int(m), int(math.Floor(rest-m*60)))
	}
}
