package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/skyscope-mcp/internal/config"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestServer returns a server with no simulated detection latency.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Detection.LatencyMS = 0
	cfg.Detection.Seed = 42
	cfg.Viewport.FallbackWidth = 64
	cfg.Viewport.FallbackHeight = 48
	return NewWithConfig(cfg, quietLogger())
}

func TestNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cache == nil {
		t.Fatal("New() did not initialize cache")
	}
	if s.Session() == nil {
		t.Fatal("New() did not initialize session")
	}
}

func TestNewWithConfig_NilArgs(t *testing.T) {
	s := NewWithConfig(nil, nil)
	if s.cfg == nil || s.log == nil {
		t.Fatal("nil config or logger was not defaulted")
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{
			"string id",
			`{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`,
			"test-1",
			"tools/list",
		},
		{
			"number id",
			`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
			float64(42), // JSON numbers decode as float64
			"ping",
		},
		{
			"null id",
			`{"jsonrpc":"2.0","id":null,"method":"initialize"}`,
			nil,
			"initialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: "init-1", Method: "initialize"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ID != "init-1" {
		t.Errorf("ID: got %v, want init-1", resp.ID)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}

	serverInfo, ok := result["serverInfo"].(map[string]interface{})
	if !ok {
		t.Fatal("serverInfo should be a map")
	}
	if serverInfo["name"] != "skyscope-mcp" {
		t.Errorf("serverInfo.name: got %v", serverInfo["name"])
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: "ping-1", Method: "ping"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ID != "ping-1" {
		t.Errorf("ID: got %v, want ping-1", resp.ID)
	}
}

func TestHandleRequest_ToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}

	result := resp.Result.(map[string]interface{})
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != 13 {
		t.Errorf("Expected 13 tools, got %d", len(toolsList))
	}
}

func TestHandleRequest_NotificationsInitialized(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", Method: "notifications/initialized"})

	// Notifications don't get responses
	if resp != nil {
		t.Error("notifications/initialized should return nil response")
	}
}

func TestHandleRequest_MethodNotFound(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "nonexistent/method"})

	if resp == nil || resp.Error == nil {
		t.Fatal("Expected error for unknown method")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("Error code: got %d, want -32601", resp.Error.Code)
	}
}

// readLines decodes every JSON line written by Serve.
func readLines(t *testing.T, out *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var msgs []map[string]interface{}
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid output line %q: %v", scanner.Text(), err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func TestServe(t *testing.T) {
	s := newTestServer(t)

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"viewport_zoom_in"}}`,
	}, "\n")

	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	msgs := readLines(t, &out)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 responses, got %d: %v", len(msgs), msgs)
	}
	for i, want := range []float64{1, 2, 3} {
		if msgs[i]["id"] != want {
			t.Errorf("response %d: id %v, want %v", i, msgs[i]["id"], want)
		}
	}
}

func TestServe_AsyncDetectionNotifies(t *testing.T) {
	cfg := config.Default()
	cfg.Detection.LatencyMS = 100
	cfg.Detection.Seed = 3
	cfg.Viewport.FallbackWidth = 64
	cfg.Viewport.FallbackHeight = 48
	s := NewWithConfig(cfg, quietLogger())

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"viewport_load","arguments":{"source":"/nonexistent/sky.png"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"detect_objects","arguments":{"async":true}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"detect_objects"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"viewport_zoom_in"}}`,
	}, "\n")

	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	responses := map[float64]map[string]interface{}{}
	var events []string
	for _, m := range readLines(t, &out) {
		if id, ok := m["id"].(float64); ok {
			responses[id] = m
			continue
		}
		if m["method"] != "notifications/message" {
			t.Errorf("unexpected notification %v", m["method"])
			continue
		}
		data := m["params"].(map[string]interface{})["data"].(map[string]interface{})
		events = append(events, data["event"].(string))
	}

	if responses[1]["error"] != nil || responses[2]["error"] != nil || responses[4]["error"] != nil {
		t.Errorf("unexpected errors: %v", responses)
	}

	busy, ok := responses[3]["error"].(map[string]interface{})
	if !ok {
		t.Fatal("second detect_objects should fail while the first runs")
	}
	if busy["data"] != "analysis already in progress" {
		t.Errorf("error data: got %v", busy["data"])
	}

	want := []string{"fallback_image", "detections_ready"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events: got %v, want %v", events, want)
	}

	if s.Session().Detections() == nil {
		t.Error("background analysis did not store a batch")
	}
}
