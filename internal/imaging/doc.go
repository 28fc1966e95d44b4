// Package imaging provides the image-side adapters of the viewport: loading,
// the fallback star field, rendering a zoomed and panned frame with its
// detection overlay, colour sampling, and distance measurement.
//
// # Coordinate System
//
// Native pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward. Display coordinates are
// relative to the container's top-left corner.
//
// # Loading
//
// Loader reads local files and http(s) URLs (PNG, JPEG, GIF and WebP).
// ImageCache wraps a Loader and keeps decoded images keyed by source string
// until Evict or Clear.
//
// # Rendering Model
//
// Render places the image at zoom/100 times its native size, centred in the
// container and shifted by the pan offset (see ComputeGeometry). Only the
// visible native pixels are cropped and scaled. Magnified views use
// nearest-neighbour sampling so that one native pixel is one solid block on
// screen. Detection boxes are given in percent of the image and are scaled
// with it.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless.
package imaging
