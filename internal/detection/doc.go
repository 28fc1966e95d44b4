// Package detection generates synthetic, labelled detection regions over an
// image for the viewport overlay.
//
// Nothing here runs a trained model. A Sampler draws from a fixed catalog of
// archetypes (spiral galaxy, planetary nebula, quasar, ...) with rarity
// weighting, and decorates each pick with a confidence, a position, a size,
// and category-dependent metadata. The output is plausible-looking data for
// an overlay, not an inference result.
//
// # Algorithm Overview
//
//  1. Choose how many detections to produce: uniform in [MinDetections, MaxDetections].
//  2. For each slot, choose a rarity bucket (common 50%, uncommon 30%, rare 20%)
//     and pick uniformly among its archetypes whose type is not yet in the
//     batch, falling back to any unused archetype when the bucket has none
//     left. A slot is skipped when the catalog is exhausted.
//  3. Confidence is the archetype's base plus a small variance (wider for rare
//     archetypes), clamped to [MinConfidence, MaxConfidence].
//  4. Position is uniform within a 15% margin of every edge, size is scaled per
//     category, and metadata is sampled from category-specific ranges.
//  5. The batch is sorted by confidence, highest first.
//
// No archetype appears twice in a batch.
//
// # Coordinates
//
// Position and Size are percentages of the image dimensions. Position is the
// centre of the detection box, so every box produced by the default catalog
// lies entirely inside the image.
//
// # Determinism
//
// The random source is injectable. A Sampler built with a non-zero seed (or
// reseeded with Reseed) produces the same batches, including detection IDs,
// for the same sequence of calls.
//
// # Concurrency
//
// At most one Sample call may be in flight per Sampler. A second call made
// while one is running fails fast with ErrAnalysisInProgress and leaves the
// running call's result untouched.
package detection
