package detection

// Category is the broad class of a detected object.
type Category string

const (
	CategoryGalaxy  Category = "galaxy"
	CategoryNebula  Category = "nebula"
	CategoryStar    Category = "star"
	CategoryPlanet  Category = "planet"
	CategoryExotic  Category = "exotic"
	CategoryUnknown Category = "unknown"
)

// Rarity is the sampling bucket an archetype belongs to.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
)

// NotApplicable marks a metadata field that has no meaning for a category.
const NotApplicable = "N/A"

// Position is the centre of a detection box, in percent of the image
// width (X) and height (Y).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the extent of a detection box, in percent of the image width and
// height.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Metadata holds display strings describing a detected object. Fields that
// do not apply to the object's category are NotApplicable.
type Metadata struct {
	Brightness   string `json:"brightness"`
	Temperature  string `json:"temperature"`
	Redshift     string `json:"redshift"`
	AngularSize  string `json:"angular_size"`
	Distance     string `json:"distance"`
	Mass         string `json:"mass"`
	SpectralType string `json:"spectral_type"`
}

// Detection is one synthetic labelled region. Detections are immutable once
// a Sampler returns them.
type Detection struct {
	// ID is a UUID unique within and across batches.
	ID string `json:"id"`

	// Type is the archetype label, e.g. "Spiral Galaxy". Unique within a batch.
	Type string `json:"type"`

	Description string   `json:"description"`
	Category    Category `json:"category"`
	Rarity      Rarity   `json:"rarity"`

	// Confidence is always within [MinConfidence, MaxConfidence].
	Confidence float64 `json:"confidence"`

	Position Position `json:"position"`
	Size     Size     `json:"size"`

	// Color is the archetype's overlay colour as "#RRGGBB".
	Color string `json:"color"`

	Metadata Metadata `json:"metadata"`
}
