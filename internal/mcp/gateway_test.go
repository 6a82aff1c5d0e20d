package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// mockTransport is a test double for the Transport interface.
type mockTransport struct {
	mu        sync.Mutex
	responses map[string]*Response // method -> canned response
	sendErr   map[string]error     // method -> transport failure
	sent      []Request
	notifs    []Notification
	closes    int
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		responses: make(map[string]*Response),
		sendErr:   make(map[string]error),
	}
}

func (m *mockTransport) addResponse(method string, result any) {
	data, _ := json.Marshal(result)
	m.responses[method] = &Response{JSONRPC: jsonrpcVersion, Result: data}
}

func (m *mockTransport) addError(method string, code int, msg string) {
	m.responses[method] = &Response{
		JSONRPC: jsonrpcVersion,
		Error:   &RPCError{Code: code, Message: msg},
	}
}

// addToolText makes tools/call return a single text block.
func (m *mockTransport) addToolText(text string, isError bool) {
	m.addResponse("tools/call", callToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: isError,
	})
}

func (m *mockTransport) Send(_ context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, *req)
	if err := m.sendErr[req.Method]; err != nil {
		return nil, err
	}
	resp, ok := m.responses[req.Method]
	if !ok {
		return nil, fmt.Errorf("unexpected method: %s", req.Method)
	}
	out := *resp
	out.ID = req.ID
	return &out, nil
}

func (m *mockTransport) Notify(_ context.Context, notif *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifs = append(m.notifs, *notif)
	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *mockTransport) methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.sent {
		out = append(out, r.Method)
	}
	return out
}

func readyTransport() *mockTransport {
	mt := newMockTransport()
	mt.addResponse("initialize", InitializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      ServerInfo{Name: "whatnext-tools", Version: "test"},
	})
	return mt
}

func errorOf(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var v struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("result %s is not JSON: %v", raw, err)
	}
	return v.Error
}

func TestGateway_HandshakeAndCall(t *testing.T) {
	mt := readyTransport()
	mt.addToolText(`{"success":true,"location":{"name":"Sydney"}}`, false)

	g := NewGatewayWithTransport(mt, nil)
	defer g.Close()

	args := map[string]any{"location": "Sydney"}
	got := g.CallTool(context.Background(), "weather_api", args)
	if string(got) != `{"success":true,"location":{"name":"Sydney"}}` {
		t.Errorf("CallTool = %s", got)
	}

	if diff := strings.Join(mt.methods(), ","); diff != "initialize,tools/call" {
		t.Errorf("methods = %s", diff)
	}
	if len(mt.notifs) != 1 || mt.notifs[0].Method != "notifications/initialized" {
		t.Errorf("notifs = %+v", mt.notifs)
	}

	init := mt.sent[0]
	params := init.Params.(map[string]any)
	if params["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion = %v", params["protocolVersion"])
	}
	if info := params["clientInfo"].(ClientInfo); info.Name != "whatnext" {
		t.Errorf("clientInfo = %+v", info)
	}

	call := mt.sent[1].Params.(map[string]any)
	if call["name"] != "weather_api" {
		t.Errorf("tools/call name = %v", call["name"])
	}
}

func TestGateway_RequestIDsIncrease(t *testing.T) {
	mt := readyTransport()
	mt.addToolText(`{"success":true}`, false)
	g := NewGatewayWithTransport(mt, nil)

	for range 3 {
		g.CallTool(context.Background(), "activity_api", nil)
	}
	var last int64
	for _, r := range mt.sent {
		if r.ID <= last {
			t.Fatalf("request ids not increasing: %d after %d", r.ID, last)
		}
		last = r.ID
	}
	if len(mt.sent) != 4 {
		t.Errorf("sent %d requests, want 4 (one initialize)", len(mt.sent))
	}
}

func TestGateway_HandshakeFailureBlocksCalls(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mockTransport)
	}{
		{name: "rpc error", setup: func(m *mockTransport) { m.addError("initialize", -32600, "bad request") }},
		{name: "no result", setup: func(m *mockTransport) { m.responses["initialize"] = &Response{JSONRPC: jsonrpcVersion} }},
		{name: "start failure", setup: func(m *mockTransport) { m.sendErr["initialize"] = errors.New("exec: not found") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := newMockTransport()
			tt.setup(mt)
			mt.addToolText(`{"success":true}`, false)

			g := NewGatewayWithTransport(mt, nil)
			if err := g.Ready(context.Background()); !errors.Is(err, ErrChannelFailed) {
				t.Fatalf("Ready = %v, want ErrChannelFailed", err)
			}

			for range 2 {
				got := g.CallTool(context.Background(), "weather_api", nil)
				if msg := errorOf(t, got); !strings.Contains(msg, "tool channel failed") {
					t.Errorf("error = %q", msg)
				}
			}
			if methods := mt.methods(); len(methods) != 1 {
				t.Errorf("methods = %v, want only the single initialize attempt", methods)
			}
			if len(mt.notifs) != 0 {
				t.Errorf("initialized notification sent on failed handshake")
			}
		})
	}
}

func TestGateway_ToolFailuresBecomeErrorResults(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*mockTransport)
		wantErr string
	}{
		{
			name:    "isError",
			setup:   func(m *mockTransport) { m.addToolText("location is required", true) },
			wantErr: "location is required",
		},
		{
			name:    "rpc error",
			setup:   func(m *mockTransport) { m.addError("tools/call", -32602, "unknown tool") },
			wantErr: "unknown tool",
		},
		{
			name:    "no content",
			setup:   func(m *mockTransport) { m.addResponse("tools/call", callToolResult{}) },
			wantErr: "no text content",
		},
		{
			name: "non-text content",
			setup: func(m *mockTransport) {
				m.addResponse("tools/call", callToolResult{Content: []ContentBlock{{Type: "image"}}})
			},
			wantErr: "no text content",
		},
		{
			name:    "non-JSON text",
			setup:   func(m *mockTransport) { m.addToolText("sunny!", false) },
			wantErr: "non-JSON",
		},
		{
			name:    "wrong result shape",
			setup:   func(m *mockTransport) { m.addResponse("tools/call", []int{1, 2}) },
			wantErr: "unmarshal tools/call result",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := readyTransport()
			tt.setup(mt)
			g := NewGatewayWithTransport(mt, nil)

			got := g.CallTool(context.Background(), "weather_api", map[string]any{})
			if msg := errorOf(t, got); !strings.Contains(msg, tt.wantErr) {
				t.Errorf("error = %q, want containing %q", msg, tt.wantErr)
			}

			// The channel stays usable after a tool-level failure.
			if err := g.Ready(context.Background()); err != nil {
				t.Errorf("Ready after tool failure = %v", err)
			}
		})
	}
}

func TestGateway_TransportLossRestartsChannel(t *testing.T) {
	mt := readyTransport()
	mt.addToolText(`{"success":true}`, false)
	mt.sendErr["tools/call"] = fmt.Errorf("read: %w", ErrTransportClosed)
	g := NewGatewayWithTransport(mt, nil)

	first := g.CallTool(context.Background(), "weather_api", nil)
	if msg := errorOf(t, first); !strings.Contains(msg, "closed") {
		t.Errorf("first error = %q", msg)
	}

	mt.mu.Lock()
	delete(mt.sendErr, "tools/call")
	mt.mu.Unlock()

	second := g.CallTool(context.Background(), "weather_api", nil)
	if string(second) != `{"success":true}` {
		t.Errorf("second CallTool = %s", second)
	}
	if got := strings.Join(mt.methods(), ","); got != "initialize,tools/call,initialize,tools/call" {
		t.Errorf("methods = %s, want a fresh handshake before the second call", got)
	}
	if len(mt.notifs) != 2 {
		t.Errorf("sent %d initialized notifications, want 2", len(mt.notifs))
	}
	if mt.closes != 0 {
		t.Errorf("transport closed %d times, want 0", mt.closes)
	}
}

func TestGateway_CloseIdempotent(t *testing.T) {
	t.Run("never started", func(t *testing.T) {
		mt := newMockTransport()
		g := NewGatewayWithTransport(mt, nil)
		if err := g.Close(); err != nil {
			t.Fatalf("first Close: %v", err)
		}
		if err := g.Close(); err != nil {
			t.Fatalf("second Close: %v", err)
		}
		if len(mt.sent) != 0 {
			t.Errorf("Close on idle gateway sent %d requests", len(mt.sent))
		}
	})

	t.Run("started", func(t *testing.T) {
		mt := readyTransport()
		mt.addToolText(`{"success":true}`, false)
		g := NewGatewayWithTransport(mt, nil)
		g.CallTool(context.Background(), "activity_api", nil)

		if err := g.Close(); err != nil {
			t.Fatalf("first Close: %v", err)
		}
		if err := g.Close(); err != nil {
			t.Fatalf("second Close: %v", err)
		}
		if mt.closes != 1 {
			t.Errorf("transport closed %d times, want 1", mt.closes)
		}

		got := g.CallTool(context.Background(), "activity_api", nil)
		if msg := errorOf(t, got); msg != ErrGatewayClosed.Error() {
			t.Errorf("call after Close error = %q", msg)
		}
	})
}

func TestErrorResult(t *testing.T) {
	got := ErrorResult(errors.New(`said "no"`))
	if string(got) != `{"error":"said \"no\""}` {
		t.Errorf("ErrorResult = %s", got)
	}
}

func TestEnvList(t *testing.T) {
	if envList(nil) != nil {
		t.Error("envList(nil) should be nil")
	}
	got := strings.Join(envList(map[string]string{"B": "2", "A": "1"}), " ")
	if got != "A=1 B=2" {
		t.Errorf("envList = %q", got)
	}
}

func TestChannelStateString(t *testing.T) {
	for s, want := range map[channelState]string{
		stateIdle: "idle", stateReady: "ready", stateFailed: "failed", stateClosed: "closed", 9: "channelState(9)",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
