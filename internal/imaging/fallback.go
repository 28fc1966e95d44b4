package imaging

import (
	"image"
	"image/color"
	"math/rand"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/noise"
)

const (
	// DefaultFallbackWidth and DefaultFallbackHeight size the fallback
	// starfield when no dimensions are configured.
	DefaultFallbackWidth  = 1024
	DefaultFallbackHeight = 768

	// starDensity is the fraction of pixels seeded with a star.
	starDensity = 0.0015
)

// FallbackStarfield renders a procedural star field used in place of an
// image that failed to load.
//
// The faint sky background is noise; star placement, brightness and tint
// come from seed, so the same seed gives the same stars.
func FallbackStarfield(width, height int, seed int64) *image.RGBA {
	if width <= 0 {
		width = DefaultFallbackWidth
	}
	if height <= 0 {
		height = DefaultFallbackHeight
	}

	sky := noise.Generate(width, height, &noise.Options{
		Monochrome: true,
		NoiseFn:    func() uint8 { return uint8(rand.Intn(14)) },
	})
	sky = adjust.Apply(sky, func(c color.RGBA) color.RGBA {
		// Night-sky blue cast.
		return color.RGBA{R: c.R / 2, G: c.G * 2 / 3, B: c.B + 10, A: 255}
	})

	rng := rand.New(rand.NewSource(seed))
	stars := int(float64(width*height) * starDensity)
	if stars < 1 {
		stars = 1
	}

	type star struct {
		x, y int
		c    color.RGBA
	}
	placed := make([]star, 0, stars)
	for i := 0; i < stars; i++ {
		s := star{x: rng.Intn(width), y: rng.Intn(height), c: starColor(rng)}
		sky.SetRGBA(s.x, s.y, s.c)
		placed = append(placed, s)
	}

	// Soften into halos, then restore the sharp cores.
	out := blur.Gaussian(sky, 0.8)
	out = adjust.Brightness(out, 0.15)
	for _, s := range placed {
		out.SetRGBA(s.x, s.y, s.c)
	}
	return out
}

// starColor picks a white-ish star colour with a slight blue or red tint.
func starColor(rng *rand.Rand) color.RGBA {
	base := uint8(180 + rng.Intn(76))
	c := color.RGBA{R: base, G: base, B: base, A: 255}
	switch rng.Intn(4) {
	case 0:
		c.B = 255
	case 1:
		c.R = 255
		c.B = uint8(int(base) * 4 / 5)
	}
	return c
}
