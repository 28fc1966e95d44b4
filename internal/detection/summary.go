package detection

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary describes a batch at a glance.
type Summary struct {
	Count int `json:"count"`

	// MeanConfidence is 0 for an empty batch.
	MeanConfidence float64 `json:"mean_confidence"`

	// StdDevConfidence is the sample standard deviation; 0 for fewer than
	// two detections.
	StdDevConfidence float64 `json:"stddev_confidence"`

	ByRarity   map[Rarity]int   `json:"by_rarity"`
	ByCategory map[Category]int `json:"by_category"`
}

// Summarize computes a Summary for detections.
func Summarize(detections []Detection) Summary {
	sum := Summary{
		Count:      len(detections),
		ByRarity:   make(map[Rarity]int),
		ByCategory: make(map[Category]int),
	}
	if len(detections) == 0 {
		return sum
	}

	conf := make([]float64, len(detections))
	for i, d := range detections {
		conf[i] = d.Confidence
		sum.ByRarity[d.Rarity]++
		sum.ByCategory[d.Category]++
	}

	sum.MeanConfidence = round3(stat.Mean(conf, nil))
	if len(conf) > 1 {
		sum.StdDevConfidence = round3(stat.StdDev(conf, nil))
	}
	return sum
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
