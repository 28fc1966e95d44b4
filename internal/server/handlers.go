package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/skyscope-mcp/internal/imaging"
	"github.com/ironsheep/skyscope-mcp/internal/overlay"
	"github.com/ironsheep/skyscope-mcp/internal/session"
	"github.com/ironsheep/skyscope-mcp/internal/viewport"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "viewport_load", "detect_objects").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	log := s.log.WithField("tool", params.Name)
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("Tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.Debug("Tool executed")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Calls the session
//  4. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image
	case "viewport_load":
		return s.handleViewportLoad(ctx, args)
	case "viewport_state":
		return s.handleViewportState()

	// Zoom and pan
	case "viewport_zoom_in":
		return s.session.ZoomIn(), nil
	case "viewport_zoom_out":
		return s.session.ZoomOut(), nil
	case "viewport_reset":
		return s.session.Reset(), nil
	case "viewport_fit":
		return s.handleViewportFit(args)
	case "viewport_wheel":
		return s.handleViewportWheel(args)
	case "viewport_pan":
		return s.handleViewportPan(args)

	// Pointer and measurement
	case "viewport_pointer":
		return s.handleViewportPointer(args)
	case "viewport_measure":
		return s.handleViewportMeasure(args)

	// Rendering
	case "viewport_render":
		return s.handleViewportRender(args)

	// Detection
	case "detect_objects":
		return s.handleDetectObjects(ctx, args)
	case "overlay_project":
		return s.handleOverlayProject(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Missing arguments decode as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Image Handlers ===

type viewportLoadArgs struct {
	Source     string  `json:"source"`
	PixelScale float64 `json:"pixel_scale"`
	Fit        bool    `json:"fit"`
}

func (s *Server) handleViewportLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a viewportLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Source == "" {
		return nil, errors.New("source is required")
	}

	res, err := s.session.LoadImage(ctx, a.Source, a.PixelScale)
	if err != nil {
		return nil, err
	}
	if a.Fit {
		res.Viewport = s.session.FitToFrame(viewport.Size{})
	}
	return res, nil
}

type viewportStateResult struct {
	Viewport       viewport.Snapshot `json:"viewport"`
	Source         string            `json:"source,omitempty"`
	Fallback       bool              `json:"fallback"`
	EffectiveScale string            `json:"effective_scale"`
	VisibleExtent  viewport.Extent   `json:"visible_extent"`
	Geometry       imaging.Geometry  `json:"geometry"`
	Analyzing      bool              `json:"analyzing"`
	Detections     int               `json:"detections"`
}

func (s *Server) handleViewportState() (interface{}, error) {
	snap := s.session.Snapshot()
	source, fallback := s.session.Source()

	res := &viewportStateResult{
		Viewport:       snap,
		Source:         source,
		Fallback:       fallback,
		EffectiveScale: viewport.EffectivePixelScale(snap.PixelScale, snap.ZoomPercent),
		VisibleExtent:  viewport.VisibleNativeExtent(snap.NativeSize, snap.ZoomPercent),
		Geometry:       imaging.ComputeGeometry(snap, s.session.Container()),
		Analyzing:      s.session.Analyzing(),
	}
	if batch := s.session.Detections(); batch != nil {
		res.Detections = len(batch.Detections)
	}
	return res, nil
}

// === Zoom and Pan Handlers ===

type viewportFitArgs struct {
	ContainerWidth  float64 `json:"container_width"`
	ContainerHeight float64 `json:"container_height"`
}

func (s *Server) handleViewportFit(args json.RawMessage) (interface{}, error) {
	var a viewportFitArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.session.FitToFrame(viewport.Size{Width: a.ContainerWidth, Height: a.ContainerHeight}), nil
}

type viewportWheelArgs struct {
	DeltaY float64 `json:"delta_y"`
}

type viewportWheelResult struct {
	Viewport viewport.Snapshot `json:"viewport"`

	// Handled tells the client to suppress its default scroll behaviour.
	Handled bool `json:"handled"`
}

func (s *Server) handleViewportWheel(args json.RawMessage) (interface{}, error) {
	var a viewportWheelArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	snap, handled := s.session.Wheel(a.DeltaY)
	return &viewportWheelResult{Viewport: snap, Handled: handled}, nil
}

type viewportPanArgs struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) handleViewportPan(args json.RawMessage) (interface{}, error) {
	var a viewportPanArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.session.PanBy(a.DX, a.DY), nil
}

// === Pointer and Measurement Handlers ===

type pointerArgs struct {
	X         *float64       `json:"x"`
	Y         *float64       `json:"y"`
	Container *viewport.Rect `json:"container"`
	Rendered  *viewport.Rect `json:"rendered"`
}

// pointer builds the pointer event. Without both rects the position is taken
// as a point on the session's own rendered frame. It returns nil if no
// position was given.
func (s *Server) pointer(a pointerArgs) *overlay.Pointer {
	if a.X == nil || a.Y == nil {
		return nil
	}
	pos := viewport.Point{X: *a.X, Y: *a.Y}
	if a.Container != nil && a.Rendered != nil {
		return &overlay.Pointer{Position: pos, Container: *a.Container, Rendered: *a.Rendered}
	}
	p := s.session.DisplayPointer(pos)
	return &p
}

func (s *Server) handleViewportPointer(args json.RawMessage) (interface{}, error) {
	var a pointerArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	p := s.pointer(a)
	if p == nil {
		return nil, errors.New("x and y are required")
	}
	return s.session.Pointer(*p)
}

type viewportMeasureArgs struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (s *Server) handleViewportMeasure(args json.RawMessage) (interface{}, error) {
	var a viewportMeasureArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.session.Measure(viewport.Point{X: a.X1, Y: a.Y1}, viewport.Point{X: a.X2, Y: a.Y2})
}

// === Rendering Handlers ===

type viewportRenderArgs struct {
	ContainerWidth  float64 `json:"container_width"`
	ContainerHeight float64 `json:"container_height"`
	Format          string  `json:"format"`
	Quality         int     `json:"quality"`
	Lossless        *bool   `json:"lossless"`
	GridSpacing     *int    `json:"grid_spacing"`
	GridLabels      bool    `json:"grid_labels"`
	Labels          *bool   `json:"labels"`
}

func (s *Server) handleViewportRender(args json.RawMessage) (interface{}, error) {
	var a viewportRenderArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	rc := s.cfg.Render
	opts := imaging.RenderOptions{
		Format:      rc.Format,
		Quality:     rc.Quality,
		Lossless:    rc.Lossless,
		GridSpacing: rc.GridSpacing,
		GridColor:   rc.GridColor,
		GridLabels:  a.GridLabels,
		Labels:      rc.Labels,
		Background:  rc.Background,
	}
	if a.Format != "" {
		opts.Format = a.Format
	}
	if a.Quality > 0 {
		opts.Quality = a.Quality
	}
	if a.Lossless != nil {
		opts.Lossless = *a.Lossless
	}
	if a.GridSpacing != nil {
		opts.GridSpacing = *a.GridSpacing
	}
	if a.Labels != nil {
		opts.Labels = *a.Labels
	}

	container := viewport.Size{Width: a.ContainerWidth, Height: a.ContainerHeight}
	s.session.SetContainer(container)
	return s.session.Render(container, opts)
}

// === Detection Handlers ===

type detectObjectsArgs struct {
	Async bool `json:"async"`
}

type detectStartedResult struct {
	Status string `json:"status"`
	Source string `json:"source"`
}

func (s *Server) handleDetectObjects(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectObjectsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	if !a.Async {
		return s.session.Analyze(ctx)
	}

	ch, err := s.session.StartAnalysis(ctx)
	if err != nil {
		return nil, err
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		res := <-ch
		if res.Err != nil {
			s.notify("notifications/message", logMessage{
				Level:  "error",
				Logger: serverName,
				Data: map[string]interface{}{
					"event": "analysis_failed",
					"error": res.Err.Error(),
				},
			})
		}
	}()

	source, _ := s.session.Source()
	s.log.WithField("source", source).Info("Analysis started in background")
	return &detectStartedResult{Status: "started", Source: source}, nil
}

func (s *Server) handleOverlayProject(args json.RawMessage) (interface{}, error) {
	var a pointerArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if !s.session.Snapshot().HasImage() {
		return nil, session.ErrNoImage
	}
	return s.session.Project(s.pointer(a)), nil
}
