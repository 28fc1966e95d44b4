// Package session owns one viewport session: the loaded image, its viewport
// state, the zoom controller, and the current detection batch.
//
// A Session replaces what would otherwise be process-wide state. All methods
// are safe for concurrent use; viewport commands are serialised, and a
// detection run happens outside the lock so commands stay responsive while
// it is in flight.
package session

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/skyscope-mcp/internal/detection"
	"github.com/ironsheep/skyscope-mcp/internal/imaging"
	"github.com/ironsheep/skyscope-mcp/internal/overlay"
	"github.com/ironsheep/skyscope-mcp/internal/viewport"
)

var (
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("no image loaded")

	// ErrImageChanged is returned by Analyze when a different image was
	// loaded while the analysis ran. The stale batch is discarded.
	ErrImageChanged = errors.New("image changed during analysis")

	errNilImage = errors.New("loader returned no image")
)

// ImageLoader loads the image identified by source.
type ImageLoader interface {
	Load(ctx context.Context, source string) (image.Image, error)
}

// FallbackFunc produces the image shown when loading fails.
type FallbackFunc func(width, height int, seed int64) image.Image

// Options configures a Session. Zero values select defaults.
type Options struct {
	Loader  ImageLoader
	Sampler *detection.Sampler

	Fallback       FallbackFunc
	FallbackWidth  int
	FallbackHeight int

	// DefaultPixelScale applies when LoadImage is given a non-positive scale.
	DefaultPixelScale float64

	// SeedPerImage reseeds the sampler from each loaded source.
	SeedPerImage bool

	// Container is the initial display container size.
	Container viewport.Size

	Logger logrus.FieldLogger
}

// LoadResult describes a completed load.
type LoadResult struct {
	Source string `json:"source"`

	// Fallback is true when the source failed to load and the procedural
	// star field is shown instead.
	Fallback       bool   `json:"fallback"`
	FallbackReason string `json:"fallback_reason,omitempty"`

	Info     *imaging.ImageInfo `json:"info"`
	Viewport viewport.Snapshot  `json:"viewport"`
}

// PointerResult is the info panel for one pointer position.
type PointerResult struct {
	overlay.Info

	// Color is the native pixel's colour; nil when the pointer is outside
	// the image.
	Color *imaging.ColorResult `json:"color,omitempty"`
}

// Session is one interactive viewport.
type Session struct {
	mu        sync.RWMutex
	state     *viewport.State
	zoom      *viewport.Controller
	changed   bool
	container viewport.Size

	img        image.Image
	source     string
	fallback   bool
	batch      *detection.Batch
	generation uint64

	loader       ImageLoader
	sampler      *detection.Sampler
	fallbackFn   FallbackFunc
	fallbackW    int
	fallbackH    int
	defaultScale float64
	seedPerImage bool
	log          logrus.FieldLogger

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// New creates a Session with no image loaded.
func New(opts Options) *Session {
	if opts.Loader == nil {
		opts.Loader = imaging.NewImageCache()
	}
	if opts.Sampler == nil {
		opts.Sampler = detection.NewSampler()
	}
	if opts.Fallback == nil {
		opts.Fallback = func(w, h int, seed int64) image.Image {
			return imaging.FallbackStarfield(w, h, seed)
		}
	}
	if opts.FallbackWidth <= 0 {
		opts.FallbackWidth = imaging.DefaultFallbackWidth
	}
	if opts.FallbackHeight <= 0 {
		opts.FallbackHeight = imaging.DefaultFallbackHeight
	}
	if !(opts.DefaultPixelScale > 0) {
		opts.DefaultPixelScale = viewport.DefaultPixelScale
	}
	if opts.Container.IsZero() {
		opts.Container = viewport.Size{Width: 800, Height: 600}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	state := viewport.NewState()
	s := &Session{
		state:        state,
		zoom:         viewport.NewController(state),
		container:    opts.Container,
		loader:       opts.Loader,
		sampler:      opts.Sampler,
		fallbackFn:   opts.Fallback,
		fallbackW:    opts.FallbackWidth,
		fallbackH:    opts.FallbackHeight,
		defaultScale: opts.DefaultPixelScale,
		seedPerImage: opts.SeedPerImage,
		log:          opts.Logger,
		listeners:    make(map[EventType][]EventListener),
	}
	// Runs under s.mu; the event itself is emitted once the lock is released.
	s.zoom.OnChange(func(viewport.Snapshot) { s.changed = true })
	return s
}

// LoadImage loads source and resets the viewport to 100% with no pan.
//
// A load failure is not an error: the fallback star field is shown and the
// result is marked Fallback. Only a cancelled ctx returns an error. Any
// detection batch for the previous image is discarded.
func (s *Session) LoadImage(ctx context.Context, source string, pixelScale float64) (*LoadResult, error) {
	log := s.log.WithField("source", source)

	img, err := s.loader.Load(ctx, source)
	if err == nil && img == nil {
		err = errNilImage
	}
	fallback, reason := false, ""
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.WithError(err).Warn("Image load failed, showing fallback star field")
		fallback, reason = true, err.Error()
		img = s.fallbackFn(s.fallbackW, s.fallbackH, detection.SeedFromSource(source))
	}
	if !(pixelScale > 0) {
		pixelScale = s.defaultScale
	}

	b := img.Bounds()
	native := viewport.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}

	s.mu.Lock()
	s.img = img
	s.source = source
	s.fallback = fallback
	s.batch = nil
	s.generation++
	s.state.SetImage(native, pixelScale)
	snap := s.state.Snapshot()
	s.mu.Unlock()

	if s.seedPerImage {
		s.sampler.Reseed(detection.SeedFromSource(source))
	}

	info := imaging.DescribeImage(img, source)
	if fallback {
		info.Format = "fallback"
	}
	result := &LoadResult{
		Source:         source,
		Fallback:       fallback,
		FallbackReason: reason,
		Info:           info,
		Viewport:       snap,
	}

	log.WithFields(logrus.Fields{
		"width":    b.Dx(),
		"height":   b.Dy(),
		"fallback": fallback,
	}).Info("Image loaded")

	s.emit(EventImageLoaded, result)
	s.emit(EventViewportChanged, snap)
	return result, nil
}

// Snapshot returns the current viewport state.
func (s *Session) Snapshot() viewport.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Snapshot()
}

// Source returns the current image source and whether it is the fallback.
// The source is empty when nothing has been loaded.
func (s *Session) Source() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source, s.fallback
}

// Container returns the display container size used for pointer mapping and
// rendering defaults.
func (s *Session) Container() viewport.Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.container
}

// SetContainer records the display container size. Empty sizes are ignored.
func (s *Session) SetContainer(size viewport.Size) {
	if size.IsZero() {
		return
	}
	s.mu.Lock()
	s.container = size
	s.mu.Unlock()
}

// command runs fn against the controller under the lock and emits
// EventViewportChanged if fn changed anything.
func (s *Session) command(fn func(c *viewport.Controller)) viewport.Snapshot {
	s.mu.Lock()
	s.changed = false
	fn(s.zoom)
	snap := s.state.Snapshot()
	changed := s.changed
	s.mu.Unlock()

	if changed {
		s.emit(EventViewportChanged, snap)
	}
	return snap
}

// ZoomIn multiplies zoom by viewport.ButtonZoomStep.
func (s *Session) ZoomIn() viewport.Snapshot {
	return s.command(func(c *viewport.Controller) { c.ZoomIn() })
}

// ZoomOut divides zoom by viewport.ButtonZoomStep.
func (s *Session) ZoomOut() viewport.Snapshot {
	return s.command(func(c *viewport.Controller) { c.ZoomOut() })
}

// Reset returns to 100% zoom with no pan.
func (s *Session) Reset() viewport.Snapshot {
	return s.command(func(c *viewport.Controller) { c.Reset() })
}

// FitToFrame fits the image into container, which also becomes the session's
// container. An empty container keeps the current one.
func (s *Session) FitToFrame(container viewport.Size) viewport.Snapshot {
	return s.command(func(c *viewport.Controller) {
		if !container.IsZero() {
			s.container = container
		}
		c.FitToFrame(s.container, s.state.NativeSize())
	})
}

// Wheel applies one wheel step. The returned bool reports that the host
// should suppress its default scroll handling; it is always true.
func (s *Session) Wheel(deltaY float64) (viewport.Snapshot, bool) {
	var handled bool
	snap := s.command(func(c *viewport.Controller) { handled = c.WheelZoom(deltaY) })
	return snap, handled
}

// PanBy shifts the image by (dx, dy) display pixels.
func (s *Session) PanBy(dx, dy float64) viewport.Snapshot {
	return s.command(func(c *viewport.Controller) { c.PanBy(dx, dy) })
}

// Analyze runs the detection sampler for the current image and stores the
// batch. It returns detection.ErrAnalysisInProgress while another run is in
// flight and ErrImageChanged if a new image was loaded before it finished.
func (s *Session) Analyze(ctx context.Context) (*detection.Batch, error) {
	ch, err := s.StartAnalysis(ctx)
	if err != nil {
		return nil, err
	}
	res := <-ch
	return res.Batch, res.Err
}

// StartAnalysis is Analyze in the background. Errors that prevent the run
// from starting are returned directly; otherwise the channel receives one
// result once the batch is stored or discarded.
func (s *Session) StartAnalysis(ctx context.Context) (<-chan detection.Result, error) {
	s.mu.RLock()
	source, gen, loaded := s.source, s.generation, s.img != nil
	s.mu.RUnlock()

	if !loaded {
		return nil, ErrNoImage
	}

	log := s.log.WithField("source", source)

	pending, err := s.sampler.Start(ctx, source)
	if err != nil {
		log.WithError(err).Debug("Analysis rejected")
		return nil, err
	}
	s.emit(EventAnalysisStarted, source)

	out := make(chan detection.Result, 1)
	go func() {
		res := <-pending
		if res.Err == nil {
			res.Err = s.storeBatch(gen, res.Batch)
		}
		if res.Err != nil {
			res.Batch = nil
			log.WithError(res.Err).Warn("Analysis did not complete")
		} else {
			log.WithFields(logrus.Fields{
				"requested":  res.Batch.Requested,
				"detections": len(res.Batch.Detections),
			}).Info("Analysis complete")
			s.emit(EventDetectionsReady, res.Batch)
		}
		out <- res
	}()
	return out, nil
}

func (s *Session) storeBatch(gen uint64, batch *detection.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return ErrImageChanged
	}
	s.batch = batch
	return nil
}

// Analyzing reports whether a detection run is in flight.
func (s *Session) Analyzing() bool {
	return s.sampler.InProgress()
}

// Detections returns the current batch, or nil if none.
func (s *Session) Detections() *detection.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batch
}

func (s *Session) detectionsLocked() []detection.Detection {
	if s.batch == nil {
		return nil
	}
	return s.batch.Detections
}

// Project returns overlay geometry for the current detections and an
// optional pointer.
func (s *Session) Project(pointer *overlay.Pointer) overlay.Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return overlay.Project(s.detectionsLocked(), s.state.Snapshot(), pointer)
}

// DisplayPointer builds a pointer event for a point on the session's own
// rendered frame, using the current container and viewport.
func (s *Session) DisplayPointer(p viewport.Point) overlay.Pointer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := imaging.ComputeGeometry(s.state.Snapshot(), s.container)
	return overlay.Pointer{
		Position:  g.LayoutPointer(p),
		Container: g.Container,
		Rendered:  g.Rendered,
	}
}

// Pointer maps a pointer event to the info panel, including the colour
// under the pointer when it is over the image.
func (s *Session) Pointer(p overlay.Pointer) (*PointerResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return nil, ErrNoImage
	}

	res := &PointerResult{Info: overlay.ProjectPointer(s.state.Snapshot(), p)}
	if res.Inside {
		b := s.img.Bounds()
		c, err := imaging.SampleColor(s.img, b.Min.X+res.Pixel.X, b.Min.Y+res.Pixel.Y)
		if err == nil {
			res.Color = c
		}
	}
	return res, nil
}

// Measure measures between two native pixels of the current image.
func (s *Session) Measure(a, b viewport.Point) (*imaging.DistanceResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return nil, ErrNoImage
	}
	return imaging.MeasureDistance(a, b, s.state.NativeSize(), s.state.PixelScale())
}

// Render draws the current frame with the detection overlay. An empty
// container uses the session's container.
func (s *Session) Render(container viewport.Size, opts imaging.RenderOptions) (*imaging.RenderResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return nil, ErrNoImage
	}
	if container.IsZero() {
		container = s.container
	}
	boxes := overlay.ProjectBoxes(s.detectionsLocked())
	return imaging.Render(s.img, s.state.Snapshot(), container, boxes, opts)
}
