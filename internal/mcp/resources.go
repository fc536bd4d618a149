package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/touchline/internal/model"
)

const (
	entitiesURI       = "touchline://entities"
	entityURIPrefix   = "touchline://entity/"
	entityURITemplate = entityURIPrefix + "{entity}"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			entitiesURI,
			"Football Entities",
			mcp.WithResourceDescription("Every public entity with its full field whitelist."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleEntitiesResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			entityURITemplate,
			"Entity Schema",
			mcp.WithTemplateDescription("Key, fields, filters and default order of one entity."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleEntityResource,
	)
}

func (s *MCPServer) handleEntitiesResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	public := s.entities.Catalog().Public()
	items := make([]model.EntitySchema, len(public))
	for i, e := range public {
		items[i] = model.DescribeEntity(e)
	}
	return jsonContents(entitiesURI, items)
}

func (s *MCPServer) handleEntityResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	name := strings.TrimPrefix(uri, entityURIPrefix)
	if name == "" || name == uri {
		return nil, fmt.Errorf("invalid entity URI %q: expected %s", uri, entityURITemplate)
	}
	e, err := s.entities.Entity(name)
	if err != nil {
		return nil, fmt.Errorf("entity %q not found (available: %s)", name, strings.Join(s.publicNames(), ", "))
	}
	return jsonContents(uri, model.DescribeEntity(e))
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
