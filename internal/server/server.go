package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/skyscope-mcp/internal/config"
	"github.com/ironsheep/skyscope-mcp/internal/detection"
	"github.com/ironsheep/skyscope-mcp/internal/imaging"
	"github.com/ironsheep/skyscope-mcp/internal/session"
	"github.com/ironsheep/skyscope-mcp/internal/viewport"
)

const (
	serverName      = "skyscope-mcp"
	serverVersion   = "0.2.0"
	protocolVersion = "2024-11-05"
)

// Server handles MCP protocol communication
type Server struct {
	cfg     *config.Config
	log     logrus.FieldLogger
	cache   *imaging.ImageCache
	session *session.Session

	outMu sync.Mutex
	enc   *json.Encoder

	// bg tracks background analyses started by detect_objects.
	bg sync.WaitGroup
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// logMessage is the params of a notifications/message notification.
type logMessage struct {
	Level  string      `json:"level"`
	Logger string      `json:"logger"`
	Data   interface{} `json:"data"`
}

// New creates a new MCP server instance with the default configuration
func New() *Server {
	return NewWithConfig(config.Default(), logrus.StandardLogger())
}

// NewWithConfig creates a server from cfg. A nil logger uses the logrus
// standard logger.
func NewWithConfig(cfg *config.Config, logger logrus.FieldLogger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	cache := imaging.NewImageCacheWithLoader(imaging.NewLoader(imaging.LoaderConfig{
		HTTPTimeout: cfg.HTTPTimeout(),
		UserAgent:   cfg.Loader.UserAgent,
		MaxBytes:    cfg.Loader.MaxBytes,
	}))

	sampler := detection.NewSamplerWithConfig(detection.Config{
		Seed:    cfg.Detection.Seed,
		Latency: cfg.Latency(),
	})

	s := &Server{
		cfg:   cfg,
		log:   logger,
		cache: cache,
		session: session.New(session.Options{
			Loader:            cache,
			Sampler:           sampler,
			FallbackWidth:     cfg.Viewport.FallbackWidth,
			FallbackHeight:    cfg.Viewport.FallbackHeight,
			DefaultPixelScale: cfg.Viewport.DefaultPixelScale,
			SeedPerImage:      cfg.Detection.SeedPerImage,
			Container: viewport.Size{
				Width:  float64(cfg.Render.ContainerWidth),
				Height: float64(cfg.Render.ContainerHeight),
			},
			Logger: logger,
		}),
	}

	s.session.On(session.EventImageLoaded, func(data interface{}) {
		res := data.(*session.LoadResult)
		if res.Fallback {
			s.notify("notifications/message", logMessage{
				Level:  "warning",
				Logger: serverName,
				Data: map[string]interface{}{
					"event":  "fallback_image",
					"source": res.Source,
					"reason": res.FallbackReason,
				},
			})
		}
	})
	s.session.On(session.EventDetectionsReady, func(data interface{}) {
		batch := data.(*detection.Batch)
		s.notify("notifications/message", logMessage{
			Level:  "info",
			Logger: serverName,
			Data: map[string]interface{}{
				"event":      "detections_ready",
				"source":     batch.Source,
				"detections": len(batch.Detections),
			},
		})
	})

	return s
}

// Session returns the viewport session the server drives.
func (s *Server) Session() *session.Session {
	return s.session
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses and
// notifications to w. It returns when r is exhausted and every background
// analysis has finished.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	s.outMu.Lock()
	s.enc = json.NewEncoder(w)
	s.outMu.Unlock()

	defer func() {
		s.bg.Wait()
		s.outMu.Lock()
		s.enc = nil
		s.outMu.Unlock()
	}()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("Failed to parse request")
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			s.write(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

func (s *Server) write(v interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.enc == nil {
		return
	}
	if err := s.enc.Encode(v); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}

// notify sends a notification if Serve is running; otherwise it is dropped.
func (s *Server) notify(method string, params interface{}) {
	s.write(&MCPNotification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.log.WithField("method", req.Method).Debug("Request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools":   map[string]interface{}{},
				"logging": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    serverName,
				"version": serverVersion,
			},
		},
	}
}
