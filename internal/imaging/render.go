package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/skyscope-mcp/internal/overlay"
	"github.com/ironsheep/skyscope-mcp/internal/viewport"
)

const (
	FormatPNG  = "png"
	FormatWebP = "webp"

	// minGridStep is the smallest on-screen grid spacing, in display pixels,
	// that is still drawn.
	minGridStep = 8

	boxThickness = 2
)

// RenderOptions controls Render. Zero values give a PNG with labels off and
// no grid.
type RenderOptions struct {
	// Format is FormatPNG (default) or FormatWebP.
	Format string

	// Quality (0-100) and Lossless apply to WebP only.
	Quality  int
	Lossless bool

	// GridSpacing draws a native-pixel grid every N pixels when > 0.
	GridSpacing int
	GridColor   string
	GridLabels  bool

	// Labels draws each box's label above it.
	Labels bool

	// Background fills the canvas outside the image. Defaults to black.
	Background string
}

// Geometry places the rendered image inside its container. Both rects are
// in the container's display frame with the container at the origin.
type Geometry struct {
	Container   viewport.Rect `json:"container"`
	Rendered    viewport.Rect `json:"rendered"`
	ZoomPercent float64       `json:"zoom_percent"`
}

// ComputeGeometry centres the image in container at the snapshot's zoom and
// shifts it by the pan offset.
func ComputeGeometry(snap viewport.Snapshot, container viewport.Size) Geometry {
	zf := snap.ZoomPercent / 100
	w := snap.NativeSize.Width * zf
	h := snap.NativeSize.Height * zf
	return Geometry{
		Container: viewport.Rect{Width: container.Width, Height: container.Height},
		Rendered: viewport.Rect{
			X:      (container.Width-w)/2 + snap.Pan.X,
			Y:      (container.Height-h)/2 + snap.Pan.Y,
			Width:  w,
			Height: h,
		},
		ZoomPercent: snap.ZoomPercent,
	}
}

// LayoutPointer converts a point on a rendered frame into the pre-zoom
// layout frame that viewport.ContainerToImagePixel expects, so that the
// mapped native pixel is the one actually drawn under p.
func (g Geometry) LayoutPointer(p viewport.Point) viewport.Point {
	if !(g.ZoomPercent > 0) {
		return p
	}
	zf := g.ZoomPercent / 100
	offX := g.Rendered.X - g.Container.X
	offY := g.Rendered.Y - g.Container.Y
	return viewport.Point{
		X: offX + (p.X-offX)/zf,
		Y: offY + (p.Y-offY)/zf,
	}
}

// RenderResult is an encoded viewport frame.
type RenderResult struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	ImageBase64 string   `json:"image_base64"`
	MimeType    string   `json:"mime_type"`
	Geometry    Geometry `json:"geometry"`
	BoxesDrawn  int      `json:"boxes_drawn"`
}

// Render draws the part of img visible in a container of the given size at
// the snapshot's zoom and pan, overlays boxes, and encodes the frame.
//
// Magnified pixels are drawn with nearest-neighbour sampling so each native
// pixel stays a crisp block; reduced views are area-averaged.
func Render(img image.Image, snap viewport.Snapshot, container viewport.Size, boxes []overlay.Box, opts RenderOptions) (*RenderResult, error) {
	if img == nil || !snap.HasImage() {
		return nil, fmt.Errorf("no image loaded")
	}
	cw := int(math.Round(container.Width))
	ch := int(math.Round(container.Height))
	if cw <= 0 || ch <= 0 {
		return nil, fmt.Errorf("invalid container size %vx%v", container.Width, container.Height)
	}

	bg := color.RGBA{A: 255}
	if opts.Background != "" {
		c, err := ParseHexColor(opts.Background)
		if err != nil {
			return nil, fmt.Errorf("invalid background: %w", err)
		}
		bg = c
	}

	g := ComputeGeometry(snap, viewport.Size{Width: float64(cw), Height: float64(ch)})
	canvas := imaging.New(cw, ch, bg)

	if src, dst, ok := visibleRegion(g, img.Bounds()); ok {
		filter := imaging.Box
		if g.ZoomPercent >= 100 {
			filter = imaging.NearestNeighbor
		}
		part := imaging.Resize(imaging.Crop(img, src), dst.Dx(), dst.Dy(), filter)
		canvas = imaging.Paste(canvas, part, dst.Min)
	}

	if opts.GridSpacing > 0 {
		gridColor := color.RGBA{R: 255, A: 128}
		if c, err := ParseHexColor(opts.GridColor); err == nil {
			gridColor = c
		}
		drawGrid(canvas, g, snap.NativeSize, opts.GridSpacing, gridColor, opts.GridLabels)
	}

	drawn := 0
	for _, b := range boxes {
		if drawBox(canvas, g, b, opts.Labels) {
			drawn++
		}
	}

	data, mime, err := encode(canvas, opts)
	if err != nil {
		return nil, err
	}

	return &RenderResult{
		Width:       cw,
		Height:      ch,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    mime,
		Geometry:    g,
		BoxesDrawn:  drawn,
	}, nil
}

// visibleRegion returns the native source rect that intersects the container
// and where its scaled copy lands on the canvas. The source is widened to
// whole pixels and the destination follows, so block edges line up exactly.
func visibleRegion(g Geometry, bounds image.Rectangle) (image.Rectangle, image.Rectangle, bool) {
	zf := g.ZoomPercent / 100
	if !(zf > 0) {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	r := g.Rendered

	sx0, sx1, ok := visibleSpan(r.X, r.Width, g.Container.Width, zf, bounds.Dx())
	if !ok {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	sy0, sy1, ok := visibleSpan(r.Y, r.Height, g.Container.Height, zf, bounds.Dy())
	if !ok {
		return image.Rectangle{}, image.Rectangle{}, false
	}

	src := image.Rect(sx0, sy0, sx1, sy1).Add(bounds.Min)
	dx0 := int(math.Round(r.X + float64(sx0)*zf))
	dy0 := int(math.Round(r.Y + float64(sy0)*zf))
	dx1 := int(math.Round(r.X + float64(sx1)*zf))
	dy1 := int(math.Round(r.Y + float64(sy1)*zf))
	if dx1 <= dx0 {
		dx1 = dx0 + 1
	}
	if dy1 <= dy0 {
		dy1 = dy0 + 1
	}
	return src, image.Rect(dx0, dy0, dx1, dy1), true
}

// visibleSpan clips one axis of the rendered image to [0, extent] and
// converts it to whole native pixels.
func visibleSpan(origin, size, extent, zf float64, native int) (int, int, bool) {
	v0 := math.Max(0, origin)
	v1 := math.Min(extent, origin+size)
	if v1 <= v0 {
		return 0, 0, false
	}
	s0 := int(math.Floor((v0 - origin) / zf))
	s1 := int(math.Ceil((v1 - origin) / zf))
	if s0 < 0 {
		s0 = 0
	}
	if s1 > native {
		s1 = native
	}
	return s0, s1, s1 > s0
}

// boxRect converts a percent-of-image box into canvas pixels.
func boxRect(g Geometry, b overlay.Box) image.Rectangle {
	r := g.Rendered
	x0 := r.X + b.Left/100*r.Width
	y0 := r.Y + b.Top/100*r.Height
	x1 := x0 + b.Size.Width/100*r.Width
	y1 := y0 + b.Size.Height/100*r.Height
	return image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)))
}

// drawBox outlines b and reports whether any of it was on the canvas.
func drawBox(dst *image.NRGBA, g Geometry, b overlay.Box, label bool) bool {
	rect := boxRect(g, b)
	if !rect.Overlaps(dst.Bounds()) {
		return false
	}

	c, err := ParseHexColor(b.Color)
	if err != nil {
		c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}

	for t := 0; t < boxThickness; t++ {
		inner := rect.Inset(t)
		if inner.Empty() {
			break
		}
		hline(dst, inner.Min.X, inner.Max.X-1, inner.Min.Y, c)
		hline(dst, inner.Min.X, inner.Max.X-1, inner.Max.Y-1, c)
		vline(dst, inner.Min.X, inner.Min.Y, inner.Max.Y-1, c)
		vline(dst, inner.Max.X-1, inner.Min.Y, inner.Max.Y-1, c)
	}

	if label && b.Label != "" {
		drawText(dst, rect.Min.X, rect.Min.Y-3, b.Label, c)
	}
	return true
}

func drawGrid(dst *image.NRGBA, g Geometry, native viewport.Size, spacing int, c color.RGBA, labels bool) {
	zf := g.ZoomPercent / 100
	if float64(spacing)*zf < minGridStep {
		return
	}
	r := g.Rendered
	top := int(math.Round(r.Y))
	bottom := int(math.Round(r.Y+r.Height)) - 1
	left := int(math.Round(r.X))
	right := int(math.Round(r.X+r.Width)) - 1

	for nx := spacing; float64(nx) < native.Width; nx += spacing {
		x := int(math.Round(r.X + float64(nx)*zf))
		if x < 0 {
			continue
		}
		if x >= dst.Bounds().Max.X {
			break
		}
		vline(dst, x, top, bottom, c)
	}
	for ny := spacing; float64(ny) < native.Height; ny += spacing {
		y := int(math.Round(r.Y + float64(ny)*zf))
		if y < 0 {
			continue
		}
		if y >= dst.Bounds().Max.Y {
			break
		}
		hline(dst, left, right, y, c)
	}

	if !labels {
		return
	}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for ny := spacing; float64(ny) < native.Height; ny += spacing {
		y := int(math.Round(r.Y + float64(ny)*zf))
		if y < 0 || y >= dst.Bounds().Max.Y {
			continue
		}
		for nx := spacing; float64(nx) < native.Width; nx += spacing {
			x := int(math.Round(r.X + float64(nx)*zf))
			if x < 0 || x >= dst.Bounds().Max.X {
				continue
			}
			drawText(dst, x+2, y+12, fmt.Sprintf("%d,%d", nx, ny), white)
		}
	}
}

// drawText writes s with its baseline at (x, y) over a translucent strip.
func drawText(dst draw.Image, x, y int, s string, c color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	width := d.MeasureString(s).Ceil()
	if y-face.Ascent < 0 {
		y = face.Ascent
	}

	strip := image.Rect(x-1, y-face.Ascent-1, x+width+1, y+face.Descent)
	draw.Draw(dst, strip, image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func hline(dst *image.NRGBA, x0, x1, y int, c color.Color) {
	b := dst.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	for x := x0; x <= x1; x++ {
		dst.Set(x, y, c)
	}
}

func vline(dst *image.NRGBA, x, y0, y1 int, c color.Color) {
	b := dst.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	for y := y0; y <= y1; y++ {
		dst.Set(x, y, c)
	}
}

func encode(img image.Image, opts RenderOptions) ([]byte, string, error) {
	var buf bytes.Buffer
	switch opts.Format {
	case "", FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case FormatWebP:
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality)}); err != nil {
			return nil, "", fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), "image/webp", nil
	default:
		return nil, "", fmt.Errorf("unsupported format: %s", opts.Format)
	}
}
