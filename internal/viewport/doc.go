// Package viewport implements the zoom/pan state machine and the coordinate
// transforms used to report pixel-accurate positions for a zoomable image.
//
// # Coordinate Spaces
//
// Three spaces are involved whenever a pointer position is reported:
//
//   - Container space: the pointer position relative to the viewing container,
//     in display pixels.
//   - Rendered space: the bounding box of the image as currently drawn, in the
//     same display frame as the container (includes the zoom transform).
//   - Native space: the image's original pixel grid, (0,0) at top-left,
//     X increasing rightward and Y increasing downward.
//
// A fourth, derived space is the approximate celestial projection returned by
// ImagePixelToApproxCelestial. It is a linear, non-physical stand-in for
// RA/Dec and must not be used as a World Coordinate System.
//
// # Zoom
//
// Zoom is expressed as a percentage. The zoom factor is zoomPercent/100 and is
// the multiplier applied to native size to get rendered size. Every mutator
// clamps zoom to [MinZoomPercent, MaxZoomPercent].
//
// # No Image Loaded
//
// A native size of {0,0} means no image is loaded. Every transform in this
// package returns a zero-valued result for that sentinel instead of dividing
// by zero, and FitToFrame leaves the zoom unchanged.
//
// # Thread Safety
//
// State and Controller are not safe for concurrent use. They are owned by a
// single viewport session, which serialises access (see package session).
// The mapper functions are pure and may be called from any goroutine.
package viewport
