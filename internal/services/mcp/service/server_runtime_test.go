package service

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/campaign-viewer/data"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	"github.com/louisbranch/campaign-viewer/internal/storage/filesystem"
)

func newTestServer(t *testing.T) (*Server, *session.Session) {
	t.Helper()
	source := filesystem.NewCampaignDir(data.Campaigns())
	sess, err := session.New(source)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	server, err := New(sess, source, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server, sess
}

// connect serves server over in-memory transports and returns a connected
// client session plus a channel reporting the serve result.
func connect(t *testing.T, ctx context.Context, server *Server, opts *mcp.ClientOptions) (*mcp.ClientSession, <-chan error) {
	t.Helper()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.serveWithTransport(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, opts)
	clientCtx, clientCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer clientCancel()
	clientSession, err := client.Connect(clientCtx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	return clientSession, serveErr
}

func TestNewRequiresSession(t *testing.T) {
	if _, err := New(nil, nil, nil); err == nil {
		t.Fatal("expected error without session")
	}
}

func TestServeWithTransportStopsOnCancel(t *testing.T) {
	server, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientSession, serveErr := connect(t, ctx, server, nil)
	defer clientSession.Close()

	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestToolsAreListed(t *testing.T) {
	server, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clientSession, _ := connect(t, ctx, server, nil)
	defer clientSession.Close()

	result, err := clientSession.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := make(map[string]bool, len(result.Tools))
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"campaign_list", "campaign_load", "scene_transition", "scene_travel",
		"scene_exits", "scene_explore", "dialogue_choose", "session_state",
		"progress_clue", "progress_relationship", "progress_choice", "progress_time",
		"gamestate_patch", "progress_save", "progress_restore", "campaign_reset",
		"session_retry",
	} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
}

func TestCallToolsAndReadSession(t *testing.T) {
	server, sess := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clientSession, _ := connect(t, ctx, server, nil)
	defer clientSession.Close()

	res, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "campaign_load",
		Arguments: map[string]any{"campaign_id": "missing_merchant"},
	})
	if err != nil {
		t.Fatalf("call campaign_load: %v", err)
	}
	if res.IsError {
		t.Fatalf("campaign_load failed: %+v", res.Content)
	}

	res, err = clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "scene_transition",
		Arguments: map[string]any{"scene_id": "forest_road"},
	})
	if err != nil {
		t.Fatalf("call scene_transition: %v", err)
	}
	if res.IsError {
		t.Fatalf("scene_transition failed: %+v", res.Content)
	}
	if got := sess.View().Scene.ID; got != "forest_road" {
		t.Fatalf("scene = %q, want forest_road", got)
	}

	read, err := clientSession.ReadResource(ctx, &mcp.ReadResourceParams{URI: "session://current"})
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	var view session.View
	if err := json.Unmarshal([]byte(read.Contents[0].Text), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.State != session.StateActive || view.Scene.ID != "forest_road" {
		t.Fatalf("view = %+v", view)
	}
}

func TestToolErrorsAreReported(t *testing.T) {
	server, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clientSession, _ := connect(t, ctx, server, nil)
	defer clientSession.Close()

	res, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "scene_travel",
		Arguments: map[string]any{"scene_id": "forest_road"},
	})
	if err != nil {
		t.Fatalf("call scene_travel: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error without a campaign")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || !strings.Contains(text.Text, "SESSION_INVALID_STATE") {
		t.Fatalf("content = %+v, want SESSION_INVALID_STATE", res.Content)
	}
}

func TestSubscribedClientsAreNotified(t *testing.T) {
	server, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan string, 4)
	clientSession, _ := connect(t, ctx, server, &mcp.ClientOptions{
		ResourceUpdatedHandler: func(_ context.Context, req *mcp.ResourceUpdatedNotificationRequest) {
			updates <- req.Params.URI
		},
	})
	defer clientSession.Close()

	if err := clientSession.Subscribe(ctx, &mcp.SubscribeParams{URI: "session://current"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "campaign_load",
		Arguments: map[string]any{"campaign_id": "missing_merchant"},
	}); err != nil {
		t.Fatalf("call campaign_load: %v", err)
	}

	select {
	case uri := <-updates:
		if uri != "session://current" {
			t.Fatalf("updated uri = %q, want session://current", uri)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no resource update received")
	}
}

func TestSubscribeRequiresURI(t *testing.T) {
	if err := resourceSubscribeHandler(context.Background(), &mcp.SubscribeRequest{Params: &mcp.SubscribeParams{URI: " "}}); err == nil {
		t.Fatal("expected subscribe error")
	}
	if err := resourceUnsubscribeHandler(context.Background(), nil); err == nil {
		t.Fatal("expected unsubscribe error")
	}
}

func TestHTTPTransport(t *testing.T) {
	server, _ := newTestServer(t)
	httpServer := httptest.NewServer(server.HTTPHandler())
	defer httpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: httpServer.URL}, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	defer clientSession.Close()

	res, err := clientSession.CallTool(ctx, &mcp.CallToolParams{Name: "campaign_list"})
	if err != nil {
		t.Fatalf("call campaign_list: %v", err)
	}
	if res.IsError {
		t.Fatalf("campaign_list failed: %+v", res.Content)
	}
}

func TestRunRejectsUnknownTransport(t *testing.T) {
	server, _ := newTestServer(t)
	if err := server.Run(context.Background(), Config{Transport: "carrier-pigeon"}); err == nil {
		t.Fatal("expected unsupported transport error")
	}
}

func TestServeHTTPStopsOnCancel(t *testing.T) {
	server, _ := newTestServer(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.serveHTTP(ctx, listener)
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serveHTTP: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serveHTTP did not stop")
	}
}
