package overlay

import (
	"fmt"
	"math"

	"github.com/ironsheep/skyscope-mcp/internal/detection"
	"github.com/ironsheep/skyscope-mcp/internal/viewport"
)

// Pointer is a pointer event as reported by the rendering surface.
type Pointer struct {
	// Position is relative to the container's top-left corner.
	Position viewport.Point `json:"position"`

	// Container and Rendered are bounding boxes in the same display frame.
	Container viewport.Rect `json:"container"`
	Rendered  viewport.Rect `json:"rendered"`
}

// Box is a detection ready to draw.
type Box struct {
	ID         string             `json:"id"`
	Label      string             `json:"label"`
	Type       string             `json:"type"`
	Category   detection.Category `json:"category"`
	Rarity     detection.Rarity   `json:"rarity"`
	Color      string             `json:"color"`
	Confidence float64            `json:"confidence"`

	// Position (centre) and Size are passed through unchanged, in percent.
	Position detection.Position `json:"position"`
	Size     detection.Size     `json:"size"`

	// Left and Top are the box's top-left corner in percent.
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// PixelCoord is a whole native pixel.
type PixelCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Info is the info panel payload for one pointer position.
type Info struct {
	// NativePixel is the unclipped mapped position; it may lie outside the image.
	NativePixel viewport.Point `json:"native_pixel"`

	// Pixel is NativePixel clipped to the image and floored.
	Pixel PixelCoord `json:"pixel"`

	// Inside reports whether the pointer is over the image.
	Inside bool `json:"inside"`

	ZoomPercent    float64            `json:"zoom_percent"`
	EffectiveScale string             `json:"effective_scale"`
	VisibleExtent  viewport.Extent    `json:"visible_extent"`
	Celestial      viewport.Celestial `json:"celestial"`
}

// Overlay is everything the renderer needs for one frame.
type Overlay struct {
	Boxes []Box `json:"boxes"`

	// Info is nil when no pointer was supplied.
	Info *Info `json:"info,omitempty"`
}

// Project converts detections and an optional pointer into overlay geometry
// for the viewport described by snap.
func Project(detections []detection.Detection, snap viewport.Snapshot, pointer *Pointer) Overlay {
	out := Overlay{Boxes: ProjectBoxes(detections)}
	if pointer != nil {
		info := ProjectPointer(snap, *pointer)
		out.Info = &info
	}
	return out
}

// ProjectBoxes labels detections for drawing, preserving their order.
func ProjectBoxes(detections []detection.Detection) []Box {
	boxes := make([]Box, 0, len(detections))
	for _, d := range detections {
		boxes = append(boxes, Box{
			ID:         d.ID,
			Label:      Label(d),
			Type:       d.Type,
			Category:   d.Category,
			Rarity:     d.Rarity,
			Color:      d.Color,
			Confidence: d.Confidence,
			Position:   d.Position,
			Size:       d.Size,
			Left:       d.Position.X - d.Size.Width/2,
			Top:        d.Position.Y - d.Size.Height/2,
		})
	}
	return boxes
}

// Label formats a detection as "Type (NN%)".
func Label(d detection.Detection) string {
	return fmt.Sprintf("%s (%d%%)", d.Type, int(math.Round(d.Confidence*100)))
}

// ProjectPointer maps a pointer event into the info panel payload.
func ProjectPointer(snap viewport.Snapshot, p Pointer) Info {
	native := viewport.ContainerToImagePixel(p.Position, p.Container, p.Rendered, snap.ZoomPercent, snap.NativeSize)
	clipped, inside := viewport.ClampToImage(native, snap.NativeSize)

	return Info{
		NativePixel:    native,
		Pixel:          floorPixel(clipped, snap.NativeSize),
		Inside:         inside,
		ZoomPercent:    snap.ZoomPercent,
		EffectiveScale: viewport.EffectivePixelScale(snap.PixelScale, snap.ZoomPercent),
		VisibleExtent:  viewport.VisibleNativeExtent(snap.NativeSize, snap.ZoomPercent),
		Celestial:      viewport.ImagePixelToApproxCelestial(clipped.X, clipped.Y, snap.NativeSize),
	}
}

// floorPixel floors p to a pixel index. The far edge belongs to the last
// pixel rather than one past it.
func floorPixel(p viewport.Point, native viewport.Size) PixelCoord {
	x := int(math.Floor(p.X))
	y := int(math.Floor(p.Y))
	if w := int(math.Ceil(native.Width)); w > 0 && x >= w {
		x = w - 1
	}
	if h := int(math.Ceil(native.Height)); h > 0 && y >= h {
		y = h - 1
	}
	return PixelCoord{X: x, Y: y}
}
