package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/skyscope-mcp/internal/detection"
	"github.com/ironsheep/skyscope-mcp/internal/imaging"
	"github.com/ironsheep/skyscope-mcp/internal/overlay"
	"github.com/ironsheep/skyscope-mcp/internal/viewport"
)

// fakeLoader serves in-memory images by source and fails for anything else.
type fakeLoader struct {
	images map[string]image.Image
}

func (f *fakeLoader) Load(ctx context.Context, source string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, ok := f.images[source]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", source)
	}
	return img, nil
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestSession(t *testing.T, latency time.Duration) *Session {
	t.Helper()
	return New(Options{
		Loader: &fakeLoader{images: map[string]image.Image{
			"wide.png":   solidImage(1000, 500, color.RGBA{R: 200, G: 100, B: 50, A: 255}),
			"square.png": solidImage(64, 64, color.RGBA{B: 255, A: 255}),
		}},
		Sampler: detection.NewSamplerWithConfig(detection.Config{Seed: 7, Latency: latency}),
		Fallback: func(w, h int, seed int64) image.Image {
			return image.NewRGBA(image.Rect(0, 0, w, h))
		},
		FallbackWidth:  320,
		FallbackHeight: 240,
		Logger:         quietLogger(),
	})
}

func mustLoad(t *testing.T, s *Session, source string) *LoadResult {
	t.Helper()
	res, err := s.LoadImage(context.Background(), source, 0)
	if err != nil {
		t.Fatalf("LoadImage(%q) failed: %v", source, err)
	}
	return res
}

func TestLoadImage(t *testing.T) {
	s := newTestSession(t, 0)

	var loaded *LoadResult
	s.On(EventImageLoaded, func(data interface{}) { loaded = data.(*LoadResult) })

	s.ZoomIn()
	res, err := s.LoadImage(context.Background(), "wide.png", 0.5)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if res.Fallback {
		t.Error("expected a real image, got fallback")
	}
	if loaded != res {
		t.Error("EventImageLoaded did not carry the load result")
	}

	snap := s.Snapshot()
	if snap.NativeSize != (viewport.Size{Width: 1000, Height: 500}) {
		t.Errorf("NativeSize: got %+v", snap.NativeSize)
	}
	if snap.ZoomPercent != viewport.DefaultZoomPercent || snap.Pan != (viewport.Point{}) {
		t.Errorf("viewport not reset: %+v", snap)
	}
	if snap.PixelScale != 0.5 {
		t.Errorf("PixelScale: got %v, want 0.5", snap.PixelScale)
	}
	if res.Info.Width != 1000 || res.Info.Format != "png" {
		t.Errorf("Info: got %+v", res.Info)
	}
	if src, fb := s.Source(); src != "wide.png" || fb {
		t.Errorf("Source: got %q, %v", src, fb)
	}
}

func TestLoadImage_DefaultPixelScale(t *testing.T) {
	s := newTestSession(t, 0)
	mustLoad(t, s, "square.png")
	if got := s.Snapshot().PixelScale; got != viewport.DefaultPixelScale {
		t.Errorf("PixelScale: got %v, want %v", got, viewport.DefaultPixelScale)
	}
}

func TestLoadImage_FallbackOnFailure(t *testing.T) {
	s := newTestSession(t, 0)

	res, err := s.LoadImage(context.Background(), "missing.png", 0)
	if err != nil {
		t.Fatalf("load failure should fall back, got error: %v", err)
	}
	if !res.Fallback {
		t.Fatal("expected Fallback")
	}
	if res.FallbackReason == "" {
		t.Error("expected a fallback reason")
	}
	if res.Info.Format != "fallback" {
		t.Errorf("Format: got %q, want fallback", res.Info.Format)
	}
	if got := s.Snapshot().NativeSize; got != (viewport.Size{Width: 320, Height: 240}) {
		t.Errorf("NativeSize: got %+v", got)
	}
	if _, fb := s.Source(); !fb {
		t.Error("Source should report fallback")
	}
}

func TestLoadImage_NilImageFallsBack(t *testing.T) {
	s := New(Options{
		Loader:         &fakeLoader{images: map[string]image.Image{"empty.png": nil}},
		Sampler:        detection.NewSamplerWithConfig(detection.Config{Seed: 7}),
		FallbackWidth:  40,
		FallbackHeight: 30,
		Logger:         quietLogger(),
	})

	res, err := s.LoadImage(context.Background(), "empty.png", 0)
	if err != nil {
		t.Fatalf("nil image should fall back, got error: %v", err)
	}
	if !res.Fallback || res.FallbackReason != "loader returned no image" {
		t.Errorf("fallback: got %v %q", res.Fallback, res.FallbackReason)
	}
	if got := s.Snapshot().NativeSize; got != (viewport.Size{Width: 40, Height: 30}) {
		t.Errorf("NativeSize: got %+v", got)
	}
}

func TestLoadImage_DefaultFallbackStarfield(t *testing.T) {
	s := New(Options{
		Loader:         &fakeLoader{},
		FallbackWidth:  48,
		FallbackHeight: 32,
		Logger:         quietLogger(),
	})

	res, err := s.LoadImage(context.Background(), "nowhere.jpg", 0)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if !res.Fallback || res.Info.Width != 48 || res.Info.Height != 32 {
		t.Errorf("unexpected fallback result: %+v", res.Info)
	}
}

func TestLoadImage_Cancelled(t *testing.T) {
	s := newTestSession(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.LoadImage(ctx, "wide.png", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.Snapshot().HasImage() {
		t.Error("cancelled load should not change the viewport")
	}
}

func TestLoadImage_DiscardsDetections(t *testing.T) {
	s := newTestSession(t, 0)
	mustLoad(t, s, "wide.png")

	if _, err := s.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if s.Detections() == nil {
		t.Fatal("expected a batch")
	}

	mustLoad(t, s, "square.png")
	if s.Detections() != nil {
		t.Error("loading a new image should discard the old batch")
	}
	if len(s.Project(nil).Boxes) != 0 {
		t.Error("overlay should be empty after a new load")
	}
}

func TestAnalyze_NoImage(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Analyze(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}
}

func TestAnalyze(t *testing.T) {
	s := newTestSession(t, 0)
	mustLoad(t, s, "wide.png")

	var started string
	var ready *detection.Batch
	s.On(EventAnalysisStarted, func(data interface{}) { started = data.(string) })
	s.On(EventDetectionsReady, func(data interface{}) { ready = data.(*detection.Batch) })

	batch, err := s.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if started != "wide.png" {
		t.Errorf("EventAnalysisStarted: got %q", started)
	}
	if ready != batch || s.Detections() != batch {
		t.Error("batch not stored or not emitted")
	}
	if batch.Source != "wide.png" {
		t.Errorf("Source: got %q", batch.Source)
	}

	ov := s.Project(nil)
	if len(ov.Boxes) != len(batch.Detections) {
		t.Errorf("Boxes: got %d, want %d", len(ov.Boxes), len(batch.Detections))
	}
	if ov.Info != nil {
		t.Error("no pointer given, Info should be nil")
	}
}

func TestAnalyze_RejectsConcurrentRun(t *testing.T) {
	s := newTestSession(t, 200*time.Millisecond)
	mustLoad(t, s, "wide.png")

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = s.Analyze(context.Background())
	}()

	waitFor(t, s.Analyzing)

	if _, err := s.Analyze(context.Background()); !errors.Is(err, detection.ErrAnalysisInProgress) {
		t.Errorf("expected ErrAnalysisInProgress, got %v", err)
	}

	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first Analyze failed: %v", firstErr)
	}
	if s.Analyzing() {
		t.Error("Analyzing should be false after completion")
	}
}

func TestAnalyze_ImageChangedMidRun(t *testing.T) {
	s := newTestSession(t, 200*time.Millisecond)
	mustLoad(t, s, "wide.png")

	done := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		done <- err
	}()

	waitFor(t, s.Analyzing)
	mustLoad(t, s, "square.png")

	if err := <-done; !errors.Is(err, ErrImageChanged) {
		t.Errorf("expected ErrImageChanged, got %v", err)
	}
	if s.Detections() != nil {
		t.Error("stale batch must not be stored")
	}
}

func TestStartAnalysis(t *testing.T) {
	s := newTestSession(t, 100*time.Millisecond)
	if _, err := s.StartAnalysis(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}

	mustLoad(t, s, "wide.png")
	ch, err := s.StartAnalysis(context.Background())
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}
	if _, err := s.StartAnalysis(context.Background()); !errors.Is(err, detection.ErrAnalysisInProgress) {
		t.Errorf("expected ErrAnalysisInProgress, got %v", err)
	}

	// Viewport commands stay available while the run is in flight.
	if snap := s.ZoomIn(); snap.ZoomPercent != 150 {
		t.Errorf("ZoomIn during analysis: got %v", snap.ZoomPercent)
	}

	res := <-ch
	if res.Err != nil {
		t.Fatalf("analysis failed: %v", res.Err)
	}
	if s.Detections() != res.Batch {
		t.Error("batch not stored")
	}
}

func TestAnalyze_SeedPerImage(t *testing.T) {
	run := func() *detection.Batch {
		s := New(Options{
			Loader:       &fakeLoader{images: map[string]image.Image{"a.png": solidImage(8, 8, color.White)}},
			SeedPerImage: true,
			Logger:       quietLogger(),
		})
		mustLoad(t, s, "a.png")
		b, err := s.Analyze(context.Background())
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		return b
	}

	a, b := run(), run()
	if len(a.Detections) != len(b.Detections) {
		t.Fatalf("batch sizes differ: %d vs %d", len(a.Detections), len(b.Detections))
	}
	for i := range a.Detections {
		if a.Detections[i].Type != b.Detections[i].Type || a.Detections[i].Confidence != b.Detections[i].Confidence {
			t.Errorf("detection %d differs: %+v vs %+v", i, a.Detections[i], b.Detections[i])
		}
	}
}

func TestCommands_EmitViewportChanged(t *testing.T) {
	s := newTestSession(t, 0)
	mustLoad(t, s, "wide.png")

	var events []viewport.Snapshot
	s.On(EventViewportChanged, func(data interface{}) { events = append(events, data.(viewport.Snapshot)) })

	snap := s.ZoomIn()
	if snap.ZoomPercent != 150 {
		t.Errorf("ZoomIn: got %v, want 150", snap.ZoomPercent)
	}
	snap = s.ZoomOut()
	if math.Abs(snap.ZoomPercent-100) > 1e-9 {
		t.Errorf("ZoomOut: got %v, want 100", snap.ZoomPercent)
	}
	snap = s.PanBy(10, -5)
	if snap.Pan != (viewport.Point{X: 10, Y: -5}) {
		t.Errorf("PanBy: got %+v", snap.Pan)
	}
	snap, handled := s.Wheel(-1)
	if !handled || math.Abs(snap.ZoomPercent-120) > 1e-9 {
		t.Errorf("Wheel: got %v handled=%v", snap.ZoomPercent, handled)
	}
	snap = s.Reset()
	if snap.ZoomPercent != 100 || snap.Pan != (viewport.Point{}) {
		t.Errorf("Reset: got %+v", snap)
	}

	if len(events) != 5 {
		t.Errorf("events: got %d, want 5", len(events))
	}
}

func TestWheel_ZeroDeltaIsSilent(t *testing.T) {
	s := newTestSession(t, 0)
	mustLoad(t, s, "wide.png")

	fired := false
	s.On(EventViewportChanged, func(interface{}) { fired = true })

	snap, handled := s.Wheel(0)
	if !handled {
		t.Error("Wheel must always report handled")
	}
	if snap.ZoomPercent != 100 {
		t.Errorf("zoom changed: %v", snap.ZoomPercent)
	}
	if fired {
		t.Error("zero delta should not emit a change")
	}
}

func TestListenerMayCallBack(t *testing.T) {
	s := newTestSession(t, 0)
	mustLoad(t, s, "wide.png")

	var seen float64
	s.On(EventViewportChanged, func(interface{}) { seen = s.Snapshot().ZoomPercent })

	s.ZoomIn()
	if seen != 150 {
		t.Errorf("listener saw zoom %v, want 150", seen)
	}
}

func TestFitToFrame(t *testing.T) {
	s := newTestSession(t, 0)
	mustLoad(t, s, "wide.png")

	s.PanBy(40, 40)
	snap := s.FitToFrame(viewport.Size{Width: 800, Height: 600})
	if math.Abs(snap.ZoomPercent-80) > 1e-9 {
		t.Errorf("zoom: got %v, want 80", snap.ZoomPercent)
	}
	if snap.Pan != (viewport.Point{}) {
		t.Errorf("pan not cleared: %+v", snap.Pan)
	}
	if got := s.Container(); got != (viewport.Size{Width: 800, Height: 600}) {
		t.Errorf("Container: got %+v", got)
	}

	// Empty container refits into the stored one.
	s.ZoomIn()
	snap = s.FitToFrame(viewport.Size{})
	if math.Abs(snap.ZoomPercent-80) > 1e-9 {
		t.Errorf("refit zoom: got %v, want 80", snap.ZoomPercent)
	}
}

func TestSetContainer(t *testing.T) {
	s := newTestSession(t, 0)
	s.SetContainer(viewport.Size{Width: 300, Height: 200})
	s.SetContainer(viewport.Size{})
	if got := s.Container(); got != (viewport.Size{Width: 300, Height: 200}) {
		t.Errorf("Container: got %+v", got)
	}
}

func TestDisplayPointer(t *testing.T) {
	s := newTestSession(t, 0)
	mustLoad(t, s, "wide.png")
	s.FitToFrame(viewport.Size{Width: 800, Height: 600})

	// Fitted by width at 80%: the image fills x 0..800, y 100..500. Points
	// sit half a native pixel inside the expected pixel.
	tests := []struct {
		name    string
		display viewport.Point
		want    overlay.PixelCoord
	}{
		{"centre", viewport.Point{X: 400.4, Y: 300.4}, overlay.PixelCoord{X: 500, Y: 250}},
		{"top left", viewport.Point{X: 0.4, Y: 100.4}, overlay.PixelCoord{X: 0, Y: 0}},
		{"quarter", viewport.Point{X: 200.4, Y: 200.4}, overlay.PixelCoord{X: 250, Y: 125}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Pointer(s.DisplayPointer(tt.display))
			if err != nil {
				t.Fatalf("Pointer failed: %v", err)
			}
			if !res.Inside {
				t.Fatal("expected pointer inside image")
			}
			if res.Pixel != tt.want {
				t.Errorf("Pixel: got %+v, want %+v", res.Pixel, tt.want)
			}
		})
	}
}

func TestPointer(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Pointer(overlay.Pointer{}); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}

	mustLoad(t, s, "wide.png")
	frame := viewport.Rect{X: 0, Y: 0, Width: 1000, Height: 500}

	res, err := s.Pointer(overlay.Pointer{Position: viewport.Point{X: 10, Y: 10}, Container: frame, Rendered: frame})
	if err != nil {
		t.Fatalf("Pointer failed: %v", err)
	}
	if res.Color == nil {
		t.Fatal("expected a colour inside the image")
	}
	if res.Color.Hex != "#C86432" {
		t.Errorf("Hex: got %q, want #C86432", res.Color.Hex)
	}

	res, err = s.Pointer(overlay.Pointer{Position: viewport.Point{X: -5, Y: 10}, Container: frame, Rendered: frame})
	if err != nil {
		t.Fatalf("Pointer failed: %v", err)
	}
	if res.Inside || res.Color != nil {
		t.Errorf("outside pointer: inside=%v color=%v", res.Inside, res.Color)
	}
}

func TestMeasure(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Measure(viewport.Point{}, viewport.Point{X: 1}); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}

	if _, err := s.LoadImage(context.Background(), "wide.png", 1.0); err != nil {
		t.Fatal(err)
	}
	d, err := s.Measure(viewport.Point{X: 0, Y: 0}, viewport.Point{X: 30, Y: 40})
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if math.Abs(d.DistancePixels-50) > 1e-9 {
		t.Errorf("DistancePixels: got %v, want 50", d.DistancePixels)
	}
	if math.Abs(d.SeparationArcsec-50) > 1e-9 {
		t.Errorf("SeparationArcsec: got %v, want 50", d.SeparationArcsec)
	}
}

func TestRender(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Render(viewport.Size{}, imaging.RenderOptions{}); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}

	mustLoad(t, s, "wide.png")
	if _, err := s.Analyze(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.FitToFrame(viewport.Size{Width: 400, Height: 200})
	res, err := s.Render(viewport.Size{}, imaging.RenderOptions{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if res.Width != 400 || res.Height != 200 {
		t.Errorf("frame size: got %dx%d, want 400x200", res.Width, res.Height)
	}
	if res.BoxesDrawn == 0 {
		t.Error("expected detection boxes to be drawn")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
