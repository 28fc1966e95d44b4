// Package server implements the MCP (Model Context Protocol) server for the
// sky viewport.
//
// This package provides a JSON-RPC 2.0 server that drives one viewport
// session: load an image, zoom and pan it, map pointer positions to native
// pixels, render frames, and run the simulated detection pass whose results
// are drawn as an overlay.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image:
//   - viewport_load: Load an image (falls back to a star field on failure)
//   - viewport_state: Current zoom, pan, scale, extent, and geometry
//
// Zoom and Pan:
//   - viewport_zoom_in, viewport_zoom_out: Step zoom by 1.5
//   - viewport_reset: 100%, no pan
//   - viewport_fit: Fit the image to the container
//   - viewport_wheel: One wheel step (1.2)
//   - viewport_pan: Shift by a display offset
//
// Pointer and Measurement:
//   - viewport_pointer: Native pixel, colour, and RA/Dec under the pointer
//   - viewport_measure: Distance and angular separation
//
// Rendering:
//   - viewport_render: PNG or WebP frame with the detection overlay
//
// Detection:
//   - detect_objects: Run the detection sampler
//   - overlay_project: Overlay boxes and pointer info
//
// # Notifications
//
// The server sends notifications/message when a load falls back to the star
// field, when detections are ready, and when a background analysis fails.
// detect_objects with "async": true returns at once and relies on the
// detections_ready notification.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, e.g. "analysis already in progress"
//
// # Usage
//
//	srv := server.NewWithConfig(cfg, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal(err)
//	}
package server
