package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "campaign-viewer MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
	// defaultHTTPAddr keeps the HTTP transport local unless configured.
	defaultHTTPAddr = "localhost:8082"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP runs MCP over streamable HTTP for remote clients.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	Transport TransportKind
	HTTPAddr  string
	Logger    *log.Logger
}

// Server hosts the MCP server for one campaign session.
type Server struct {
	mcpServer *mcp.Server
	logger    *log.Logger
}

// New creates a configured MCP server whose tools and resources operate on
// sess. campaigns backs the catalog tools and may be nil.
func New(sess *session.Session, campaigns storage.CampaignLister, logger *log.Logger) (*Server, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, &mcp.ServerOptions{
		CompletionHandler:  completionHandler,
		SubscribeHandler:   resourceSubscribeHandler,
		UnsubscribeHandler: resourceUnsubscribeHandler,
	})

	server := &Server{mcpServer: mcpServer, logger: logger}
	resourceNotifier := func(ctx context.Context, uri string) {
		if strings.TrimSpace(uri) == "" {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}
		if err := mcpServer.ResourceUpdated(ctx, &mcp.ResourceUpdatedNotificationParams{URI: uri}); err != nil {
			logger.Printf("mcp resource updated notify failed: uri=%s err=%v", uri, err)
		}
	}

	tools, resources := 0, 0
	for _, module := range newMCPRegistrationModules(sess, campaigns, resourceNotifier) {
		if err := module.register(mcpServerRegistrationAdapter{server: mcpServer}); err != nil {
			return nil, fmt.Errorf("register MCP module %q: %w", module.name, err)
		}
		switch module.kind {
		case mcpRegistrationKindTools:
			tools++
		case mcpRegistrationKindResources:
			resources++
		}
	}
	logger.Printf("mcp registered %d tool modules and %d resource modules", tools, resources)

	return server, nil
}
