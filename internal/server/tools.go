package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var emptySchema = map[string]interface{}{
	"type":       "object",
	"properties": map[string]interface{}{},
}

func rectSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x":      map[string]interface{}{"type": "number"},
			"y":      map[string]interface{}{"type": "number"},
			"width":  map[string]interface{}{"type": "number"},
			"height": map[string]interface{}{"type": "number"},
		},
		"required": []string{"x", "y", "width", "height"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image
		{
			Name:        "viewport_load",
			Description: "Load an image from a local path or http(s) URL into the viewport. Resets zoom to 100% and clears detections. If the image cannot be loaded a procedural star field is shown instead and the result is marked fallback.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source": map[string]interface{}{
						"type":        "string",
						"description": "Absolute file path or http(s) URL of the image",
					},
					"pixel_scale": map[string]interface{}{
						"type":        "number",
						"description": "Arcseconds per native pixel. Defaults to the configured scale (0.031)",
					},
					"fit": map[string]interface{}{
						"type":        "boolean",
						"description": "Fit the image to the container after loading",
						"default":     false,
					},
				},
				"required": []string{"source"},
			},
		},
		{
			Name:        "viewport_state",
			Description: "Get the current viewport: zoom, pan, native size, pixel scale, effective scale, visible extent, render geometry, and detection status.",
			InputSchema: emptySchema,
		},

		// Zoom and pan
		{
			Name:        "viewport_zoom_in",
			Description: "Zoom in by a factor of 1.5 (clamped to 25%..5000%).",
			InputSchema: emptySchema,
		},
		{
			Name:        "viewport_zoom_out",
			Description: "Zoom out by a factor of 1.5 (clamped to 25%..5000%).",
			InputSchema: emptySchema,
		},
		{
			Name:        "viewport_reset",
			Description: "Reset to 100% zoom with no pan.",
			InputSchema: emptySchema,
		},
		{
			Name:        "viewport_fit",
			Description: "Fit the whole image into the container and clear the pan. The given container size becomes the session's container.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"container_width": map[string]interface{}{
						"type":        "number",
						"description": "Container width in display pixels. Defaults to the current container",
					},
					"container_height": map[string]interface{}{
						"type":        "number",
						"description": "Container height in display pixels. Defaults to the current container",
					},
				},
			},
		},
		{
			Name:        "viewport_wheel",
			Description: "Apply one mouse-wheel step: negative delta zooms in by 1.2, positive zooms out, zero does nothing.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"delta_y": map[string]interface{}{
						"type":        "number",
						"description": "Wheel delta; only the sign is used",
					},
				},
				"required": []string{"delta_y"},
			},
		},
		{
			Name:        "viewport_pan",
			Description: "Pan the image by a display-pixel offset. Pan is not clamped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dx": map[string]interface{}{"type": "number", "description": "Horizontal offset in display pixels"},
					"dy": map[string]interface{}{"type": "number", "description": "Vertical offset in display pixels"},
				},
			},
		},

		// Pointer and measurement
		{
			Name:        "viewport_pointer",
			Description: "Map a pointer position to the native pixel under it, with colour, approximate RA/Dec, effective scale, and visible extent. Without container/rendered rects the position is a point on the frame returned by viewport_render.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x":         map[string]interface{}{"type": "number", "description": "Pointer X in display pixels"},
					"y":         map[string]interface{}{"type": "number", "description": "Pointer Y in display pixels"},
					"container": rectSchema("Client-measured container rect"),
					"rendered":  rectSchema("Client-measured rendered image rect"),
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "viewport_measure",
			Description: "Measure the distance between two native pixels, with angle and angular separation at the image's pixel scale.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x1": map[string]interface{}{"type": "number", "description": "First point X (native pixels)"},
					"y1": map[string]interface{}{"type": "number", "description": "First point Y (native pixels)"},
					"x2": map[string]interface{}{"type": "number", "description": "Second point X (native pixels)"},
					"y2": map[string]interface{}{"type": "number", "description": "Second point Y (native pixels)"},
				},
				"required": []string{"x1", "y1", "x2", "y2"},
			},
		},

		// Rendering
		{
			Name:        "viewport_render",
			Description: "Render the current view with detection boxes and return it as a base64 image. Magnified views keep native pixels as solid blocks.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"container_width":  map[string]interface{}{"type": "number", "description": "Frame width. Defaults to the session container"},
					"container_height": map[string]interface{}{"type": "number", "description": "Frame height. Defaults to the session container"},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"png", "webp"},
						"description": "Output format. Defaults to the configured format",
					},
					"quality":      map[string]interface{}{"type": "integer", "description": "WebP quality 1-100"},
					"lossless":     map[string]interface{}{"type": "boolean", "description": "Lossless WebP"},
					"grid_spacing": map[string]interface{}{"type": "integer", "description": "Native-pixel grid spacing; 0 for none"},
					"grid_labels":  map[string]interface{}{"type": "boolean", "description": "Label grid lines with native coordinates"},
					"labels":       map[string]interface{}{"type": "boolean", "description": "Draw detection labels"},
				},
			},
		},

		// Detection
		{
			Name:        "detect_objects",
			Description: "Run the detection sampler on the current image and replace the current detections. Only one analysis may run at a time; a second call fails with 'analysis already in progress'.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"async": map[string]interface{}{
						"type":        "boolean",
						"description": "Return immediately; a notifications/message reports completion",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "overlay_project",
			Description: "Get overlay boxes for the current detections (percent of the image) and, if a pointer is given, the info panel for it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x":         map[string]interface{}{"type": "number", "description": "Optional pointer X in display pixels"},
					"y":         map[string]interface{}{"type": "number", "description": "Optional pointer Y in display pixels"},
					"container": rectSchema("Client-measured container rect"),
					"rendered":  rectSchema("Client-measured rendered image rect"),
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
