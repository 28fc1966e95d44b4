package detection

// Archetype is a fixed catalog entry describing one kind of synthetic
// detection.
type Archetype struct {
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	Category       Category `json:"category"`
	Rarity         Rarity   `json:"rarity"`
	BaseConfidence float64  `json:"base_confidence"`
	Color          string   `json:"color"`
}

// sizeMultiplier scales the base box size per category.
var sizeMultiplier = map[Category]float64{
	CategoryGalaxy:  1.2,
	CategoryNebula:  1.5,
	CategoryStar:    0.8,
	CategoryPlanet:  0.6,
	CategoryExotic:  1.0,
	CategoryUnknown: 0.9,
}

// DefaultCatalog returns a fresh copy of the built-in archetypes.
func DefaultCatalog() []Archetype {
	return []Archetype{
		// Common
		{"Spiral Galaxy", "Disk galaxy with well-defined spiral arms and a bright central bulge", CategoryGalaxy, RarityCommon, 0.91, "#8B5CF6"},
		{"Elliptical Galaxy", "Smooth, featureless ellipsoidal galaxy dominated by older stars", CategoryGalaxy, RarityCommon, 0.88, "#A78BFA"},
		{"Main Sequence Star", "Hydrogen-burning star on the main sequence", CategoryStar, RarityCommon, 0.94, "#FDE047"},
		{"Open Star Cluster", "Loose group of young stars sharing a common origin", CategoryStar, RarityCommon, 0.86, "#FACC15"},
		{"Emission Nebula", "Cloud of ionised gas glowing in hydrogen-alpha", CategoryNebula, RarityCommon, 0.84, "#F472B6"},
		{"Red Giant", "Evolved star with an expanded, cooler envelope", CategoryStar, RarityCommon, 0.89, "#F97316"},

		// Uncommon
		{"Planetary Nebula", "Shell of gas expelled by a dying low-mass star", CategoryNebula, RarityUncommon, 0.81, "#22D3EE"},
		{"Globular Cluster", "Dense spherical collection of ancient stars", CategoryStar, RarityUncommon, 0.83, "#FBBF24"},
		{"Reflection Nebula", "Dust cloud scattering light from nearby stars", CategoryNebula, RarityUncommon, 0.78, "#60A5FA"},
		{"Barred Spiral Galaxy", "Spiral galaxy with a central bar of stars", CategoryGalaxy, RarityUncommon, 0.80, "#C084FC"},
		{"Exoplanet Transit", "Periodic dimming consistent with a transiting planet", CategoryPlanet, RarityUncommon, 0.74, "#34D399"},
		{"Gas Giant Candidate", "Point source with colours typical of a young gas giant", CategoryPlanet, RarityUncommon, 0.73, "#10B981"},

		// Rare
		{"Quasar", "Extremely luminous active galactic nucleus at high redshift", CategoryExotic, RarityRare, 0.72, "#EF4444"},
		{"Gravitational Lens", "Arc-shaped distortion from a foreground mass", CategoryExotic, RarityRare, 0.68, "#F59E0B"},
		{"Black Hole Candidate", "Compact region with signatures of an accreting black hole", CategoryExotic, RarityRare, 0.66, "#DC2626"},
		{"Supernova Remnant", "Expanding filamentary shell from a stellar explosion", CategoryNebula, RarityRare, 0.75, "#FB7185"},
		{"Unidentified Transient", "Source with no catalog counterpart", CategoryUnknown, RarityRare, 0.63, "#9CA3AF"},
	}
}
