package service

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	"github.com/louisbranch/campaign-viewer/internal/services/mcp/domain"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

type mcpRegistrationKind int

const (
	mcpRegistrationKindTools mcpRegistrationKind = iota
	mcpRegistrationKindResources
)

type mcpRegistrationModule struct {
	name     string
	kind     mcpRegistrationKind
	register func(mcpRegistrationTarget) error
}

const (
	mcpCatalogToolsModuleName    = "catalog-tools"
	mcpSceneToolsModuleName      = "scene-tools"
	mcpProgressToolsModuleName   = "progress-tools"
	mcpLifecycleToolsModuleName  = "lifecycle-tools"
	mcpSessionResourceModuleName = "session-resources"
	mcpCatalogResourceModuleName = "catalog-resources"
)

// mcpRegistrationTarget is the subset of *mcp.Server that modules register on.
type mcpRegistrationTarget interface {
	AddTool(tool *mcp.Tool, handler any) error
	AddResource(resource *mcp.Resource, handler mcp.ResourceHandler)
}

type mcpServerRegistrationAdapter struct {
	server *mcp.Server
}

func (r mcpServerRegistrationAdapter) AddTool(tool *mcp.Tool, handler any) error {
	return addMCPTool(r.server, tool, handler)
}

func (r mcpServerRegistrationAdapter) AddResource(resource *mcp.Resource, handler mcp.ResourceHandler) {
	r.server.AddResource(resource, handler)
}

type mcpToolRegistrar struct {
	matches func(any) bool
	add     func(*mcp.Server, *mcp.Tool, any)
}

func newMCPToolRegistrar[I any, O any]() mcpToolRegistrar {
	return mcpToolRegistrar{
		matches: func(handler any) bool {
			_, ok := handler.(mcp.ToolHandlerFor[I, O])
			return ok
		},
		add: func(server *mcp.Server, tool *mcp.Tool, handler any) {
			mcp.AddTool(server, tool, handler.(mcp.ToolHandlerFor[I, O]))
		},
	}
}

var mcpToolRegistrars = []mcpToolRegistrar{
	newMCPToolRegistrar[domain.CampaignListInput, domain.CampaignListResult](),
	newMCPToolRegistrar[domain.CampaignLoadInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.SceneInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.EmptyInput, domain.ExitsResult](),
	newMCPToolRegistrar[domain.EmptyInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.ClueInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.RelationshipInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.ChoiceInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.TimeInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.DialogueInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.GameStatePatchInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.EmptyInput, domain.SaveResult](),
	newMCPToolRegistrar[domain.EmptyInput, domain.RestoreResult](),
}

func addMCPTool(server *mcp.Server, tool *mcp.Tool, handler any) error {
	for _, registrar := range mcpToolRegistrars {
		if registrar.matches(handler) {
			registrar.add(server, tool, handler)
			return nil
		}
	}
	toolName := "<nil>"
	if tool != nil {
		toolName = tool.Name
	}
	return fmt.Errorf("mcp registration adapter does not support handler type %T for tool %q", handler, toolName)
}

type toolRegistration struct {
	tool    *mcp.Tool
	handler any
}

func registerTools(registrar mcpRegistrationTarget, registrations []toolRegistration) error {
	for _, registration := range registrations {
		if err := registrar.AddTool(registration.tool, registration.handler); err != nil {
			return err
		}
	}
	return nil
}

func newMCPRegistrationModules(
	sess *session.Session,
	campaigns storage.CampaignLister,
	notify domain.ResourceUpdateNotifier,
) []mcpRegistrationModule {
	return []mcpRegistrationModule{
		{
			name: mcpCatalogToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerTools(registrar, []toolRegistration{
					{tool: domain.CampaignListTool(), handler: domain.CampaignListHandler(campaigns)},
					{tool: domain.CampaignLoadTool(), handler: domain.CampaignLoadHandler(sess, notify)},
				})
			},
		},
		{
			name: mcpSceneToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerTools(registrar, []toolRegistration{
					{tool: domain.SceneTransitionTool(), handler: domain.SceneTransitionHandler(sess, notify)},
					{tool: domain.SceneTravelTool(), handler: domain.SceneTravelHandler(sess, notify)},
					{tool: domain.SceneExitsTool(), handler: domain.SceneExitsHandler(sess)},
					{tool: domain.SceneExploreTool(), handler: domain.SceneExploreHandler(sess, notify)},
					{tool: domain.DialogueChooseTool(), handler: domain.DialogueChooseHandler(sess, notify)},
				})
			},
		},
		{
			name: mcpProgressToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerTools(registrar, []toolRegistration{
					{tool: domain.ClueRecordTool(), handler: domain.ClueRecordHandler(sess, notify)},
					{tool: domain.RelationshipAdjustTool(), handler: domain.RelationshipAdjustHandler(sess, notify)},
					{tool: domain.ChoiceRecordTool(), handler: domain.ChoiceRecordHandler(sess, notify)},
					{tool: domain.TimeAdvanceTool(), handler: domain.TimeAdvanceHandler(sess, notify)},
					{tool: domain.GameStatePatchTool(), handler: domain.GameStatePatchHandler(sess, notify)},
				})
			},
		},
		{
			name: mcpLifecycleToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerTools(registrar, []toolRegistration{
					{tool: domain.SessionStateTool(), handler: domain.SessionStateHandler(sess)},
					{tool: domain.ProgressSaveTool(), handler: domain.ProgressSaveHandler(sess)},
					{tool: domain.ProgressRestoreTool(), handler: domain.ProgressRestoreHandler(sess, notify)},
					{tool: domain.CampaignResetTool(), handler: domain.CampaignResetHandler(sess, notify)},
					{tool: domain.SessionRetryTool(), handler: domain.SessionRetryHandler(sess, notify)},
				})
			},
		},
		{
			name: mcpSessionResourceModuleName,
			kind: mcpRegistrationKindResources,
			register: func(registrar mcpRegistrationTarget) error {
				registrar.AddResource(domain.SessionResource(), domain.SessionResourceHandler(sess))
				return nil
			},
		},
		{
			name: mcpCatalogResourceModuleName,
			kind: mcpRegistrationKindResources,
			register: func(registrar mcpRegistrationTarget) error {
				registrar.AddResource(domain.CampaignListResource(), domain.CampaignListResourceHandler(campaigns))
				return nil
			},
		},
	}
}
