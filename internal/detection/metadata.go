package detection

import (
	"fmt"
	"math"
	"math/rand"
)

// sampleMetadata draws every metadata field from the ranges of category c.
// Ranges are loosely modelled on real objects of each class and are only
// meant to read plausibly.
func sampleMetadata(rng *rand.Rand, c Category) Metadata {
	md := Metadata{
		Brightness:   NotApplicable,
		Temperature:  NotApplicable,
		Redshift:     NotApplicable,
		AngularSize:  NotApplicable,
		Distance:     NotApplicable,
		Mass:         NotApplicable,
		SpectralType: NotApplicable,
	}

	switch c {
	case CategoryGalaxy:
		md.Brightness = magnitude(rng, 8, 16)
		md.Redshift = fmt.Sprintf("z = %.4f", uniform(rng, 0.001, 0.5))
		md.AngularSize = fmt.Sprintf("%.1f arcmin", uniform(rng, 0.5, 30))
		md.Distance = fmt.Sprintf("%.1f Mly", uniform(rng, 1, 500))
		md.Mass = fmt.Sprintf("%.1e M☉", math.Pow(10, uniform(rng, 9, 12)))

	case CategoryNebula:
		md.Brightness = magnitude(rng, 6, 14)
		md.Temperature = fmt.Sprintf("%.0f K", uniform(rng, 5000, 15000))
		md.AngularSize = fmt.Sprintf("%.1f arcmin", uniform(rng, 1, 60))
		md.Distance = fmt.Sprintf("%.0f ly", uniform(rng, 500, 10000))
		md.Mass = fmt.Sprintf("%.0f M☉", uniform(rng, 10, 10000))

	case CategoryStar:
		temp := uniform(rng, 3000, 30000)
		md.Brightness = magnitude(rng, 2, 15)
		md.Temperature = fmt.Sprintf("%.0f K", temp)
		md.Distance = fmt.Sprintf("%.0f ly", uniform(rng, 10, 5000))
		md.Mass = fmt.Sprintf("%.2f M☉", uniform(rng, 0.1, 50))
		md.SpectralType = fmt.Sprintf("%s%dV", spectralClass(temp), rng.Intn(10))

	case CategoryPlanet:
		md.Brightness = magnitude(rng, 9, 20)
		md.Temperature = fmt.Sprintf("%.0f K", uniform(rng, 100, 2500))
		md.Distance = fmt.Sprintf("%.0f ly", uniform(rng, 10, 3000))
		md.Mass = fmt.Sprintf("%.2f M♃", uniform(rng, 0.1, 15))

	case CategoryExotic:
		md.Brightness = magnitude(rng, 12, 22)
		md.Redshift = fmt.Sprintf("z = %.4f", uniform(rng, 0.1, 6))
		md.Distance = fmt.Sprintf("%.2f Gly", uniform(rng, 1, 12))
		md.Mass = fmt.Sprintf("%.1e M☉", math.Pow(10, uniform(rng, 6, 10)))

	case CategoryUnknown:
		md.Brightness = magnitude(rng, 15, 22)
	}

	return md
}

func magnitude(rng *rand.Rand, lo, hi float64) string {
	return fmt.Sprintf("%.2f mag", uniform(rng, lo, hi))
}

// spectralClass maps an effective temperature in kelvin to its Harvard class.
func spectralClass(kelvin float64) string {
	switch {
	case kelvin >= 30000:
		return "O"
	case kelvin >= 10000:
		return "B"
	case kelvin >= 7500:
		return "A"
	case kelvin >= 6000:
		return "F"
	case kelvin >= 5200:
		return "G"
	case kelvin >= 3700:
		return "K"
	default:
		return "M"
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
