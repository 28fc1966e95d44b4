package detection

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// MinDetections and MaxDetections bound the requested batch size.
	MinDetections = 5
	MaxDetections = 10

	// MinConfidence and MaxConfidence bound every reported confidence.
	MinConfidence = 0.55
	MaxConfidence = 0.99

	// EdgeMarginPercent keeps detection centres away from the image edges.
	EdgeMarginPercent = 15.0

	confidenceVariance = 0.04
	rareVarianceFactor = 1.5
	minBaseSize        = 4.0
	maxBaseSize        = 12.0
)

var (
	// ErrAnalysisInProgress is returned by Sample while another Sample call
	// on the same Sampler has not finished.
	ErrAnalysisInProgress = errors.New("analysis already in progress")

	// ErrEmptyCatalog is returned when the sampler has no archetypes.
	ErrEmptyCatalog = errors.New("detection catalog is empty")
)

// Config controls a Sampler.
type Config struct {
	// Seed initialises the random source. Zero seeds from the clock.
	Seed int64

	// Latency is the simulated processing time of each Sample call.
	Latency time.Duration

	// Catalog replaces DefaultCatalog when non-nil.
	Catalog []Archetype
}

// Batch is the output of one sampling run. It replaces any earlier batch.
type Batch struct {
	// Source identifies the image the batch was sampled for.
	Source string `json:"source"`

	// Requested is the number of detections the run aimed for. Detections
	// may be shorter when the catalog ran out.
	Requested int `json:"requested"`

	// Detections are sorted by confidence, highest first.
	Detections []Detection `json:"detections"`

	Summary Summary `json:"summary"`
}

// Sampler produces batches of synthetic detections.
type Sampler struct {
	catalog []Archetype
	latency time.Duration

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	running atomic.Bool
}

// NewSampler creates a clock-seeded Sampler over DefaultCatalog.
func NewSampler() *Sampler {
	return NewSamplerWithConfig(Config{})
}

// NewSamplerWithConfig creates a Sampler from cfg.
func NewSamplerWithConfig(cfg Config) *Sampler {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		catalog: catalog,
		latency: cfg.Latency,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Reseed resets the random source. Subsequent batches are reproducible for
// the same seed.
func (s *Sampler) Reseed(seed int64) {
	s.mu.Lock()
	s.rng = rand.New(rand.NewSource(seed))
	s.mu.Unlock()
}

// InProgress reports whether a Sample call is running.
func (s *Sampler) InProgress() bool {
	return s.running.Load()
}

// SeedFromSource derives a stable seed from an image identifier so the same
// image always yields the same batch.
func SeedFromSource(source string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	seed := int64(h.Sum64() & 0x7fffffffffffffff)
	if seed == 0 {
		seed = 1
	}
	return seed
}

// Result is the outcome of a background sampling pass.
type Result struct {
	Batch *Batch
	Err   error
}

// Sample runs one sampling pass for the image identified by source.
//
// The call waits for the configured latency (returning ctx.Err() if ctx is
// done first) and then generates a batch. While it runs, any other Sample
// or Start call on s returns ErrAnalysisInProgress immediately without
// consuming randomness.
func (s *Sampler) Sample(ctx context.Context, source string) (*Batch, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAnalysisInProgress
	}
	defer s.running.Store(false)
	return s.run(ctx, source)
}

// Start is Sample in the background. The in-progress check happens before
// Start returns; the channel then receives exactly one Result.
func (s *Sampler) Start(ctx context.Context, source string) (<-chan Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAnalysisInProgress
	}
	ch := make(chan Result, 1)
	go func() {
		batch, err := s.run(ctx, source)
		s.running.Store(false)
		ch <- Result{Batch: batch, Err: err}
	}()
	return ch, nil
}

func (s *Sampler) run(ctx context.Context, source string) (*Batch, error) {
	if len(s.catalog) == 0 {
		return nil, ErrEmptyCatalog
	}

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generate(source), nil
}

func (s *Sampler) generate(source string) *Batch {
	requested := MinDetections + s.rng.Intn(MaxDetections-MinDetections+1)

	used := make(map[string]bool, requested)
	detections := make([]Detection, 0, requested)
	for slot := 0; slot < requested; slot++ {
		idx, ok := s.pick(used)
		if !ok {
			// Catalog exhausted; a short batch is acceptable.
			continue
		}
		used[s.catalog[idx].Type] = true
		detections = append(detections, s.build(s.catalog[idx]))
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	return &Batch{
		Source:     source,
		Requested:  requested,
		Detections: detections,
		Summary:    Summarize(detections),
	}
}

// pick chooses the index of an archetype whose type is not in used. It draws
// a rarity bucket and picks uniformly among that bucket's unused archetypes,
// falling back to any unused archetype when the bucket has none left.
func (s *Sampler) pick(used map[string]bool) (int, bool) {
	if idx, ok := s.pickFrom(s.unused(used, rarityFor(s.rng.Float64()), true)); ok {
		return idx, true
	}
	return s.pickFrom(s.unused(used, "", false))
}

// unused lists catalog indexes whose type is not in used, restricted to one
// rarity when byRarity is set.
func (s *Sampler) unused(used map[string]bool, r Rarity, byRarity bool) []int {
	var out []int
	for i, a := range s.catalog {
		if used[a.Type] || (byRarity && a.Rarity != r) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (s *Sampler) pickFrom(candidates []int) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[s.rng.Intn(len(candidates))], true
}

// rarityFor maps a uniform draw in [0,1) to a bucket: 50% common,
// 30% uncommon, 20% rare.
func rarityFor(r float64) Rarity {
	switch {
	case r < 0.5:
		return RarityCommon
	case r < 0.8:
		return RarityUncommon
	default:
		return RarityRare
	}
}

func (s *Sampler) build(a Archetype) Detection {
	variance := uniform(s.rng, -confidenceVariance, confidenceVariance)
	if a.Rarity == RarityRare {
		variance *= rareVarianceFactor
	}

	multiplier, ok := sizeMultiplier[a.Category]
	if !ok {
		multiplier = sizeMultiplier[CategoryUnknown]
	}
	width := uniform(s.rng, minBaseSize, maxBaseSize) * multiplier
	height := width * uniform(s.rng, 0.8, 1.2)

	return Detection{
		ID:          s.newID(),
		Type:        a.Type,
		Description: a.Description,
		Category:    a.Category,
		Rarity:      a.Rarity,
		Confidence:  clamp(a.BaseConfidence+variance, MinConfidence, MaxConfidence),
		Position: Position{
			X: uniform(s.rng, EdgeMarginPercent, 100-EdgeMarginPercent),
			Y: uniform(s.rng, EdgeMarginPercent, 100-EdgeMarginPercent),
		},
		Size:     Size{Width: width, Height: height},
		Color:    a.Color,
		Metadata: sampleMetadata(s.rng, a.Category),
	}
}

// newID draws the UUID from the sampler's own random source so seeded runs
// reproduce their IDs.
func (s *Sampler) newID() string {
	id, err := uuid.NewRandomFromReader(s.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
