package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/model"
	"github.com/faucetdb/touchline/internal/query"
	"github.com/faucetdb/touchline/internal/service"
)

// defaultQueryLimit is the page size when the agent gives none.
const defaultQueryLimit = 25

// registerTools registers the entity tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Discovery tools -----

	s.addTool(srv,
		mcp.NewTool("touchline_list_entities",
			mcp.WithDescription(
				"List the football entities available (players, teams, matches, ...). "+
					"Returns each entity's name, whether its key is generated, and "+
					"whether it is read-only. Use this first.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListEntities,
	)

	s.addTool(srv,
		mcp.NewTool("touchline_describe_entity",
			mcp.WithDescription(
				"Describe one entity: its key, the fields that may be written with their "+
					"types (integer, decimal, string, date), which are required, which "+
					"fields can be filtered or searched, and the default order.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("entity",
				mcp.Required(),
				mcp.Description("Entity name, e.g. \"players\""),
			),
		),
		s.handleDescribeEntity,
	)

	// ----- Read tools -----

	s.addTool(srv,
		mcp.NewTool("touchline_query",
			mcp.WithDescription(
				"List records of an entity with optional equality filters, a text search, "+
					"field selection, ordering and pagination.\n\n"+
					"Filters are exact matches on the entity's filter fields, e.g. "+
					"{\"team_id\": 3}. Search matches a substring of the search fields.\n"+
					"Order syntax: 'field ASC, other_field DESC'",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("entity",
				mcp.Required(),
				mcp.Description("Entity name"),
			),
			mcp.WithObject("filters",
				mcp.Description("Equality filters keyed by filter field name"),
			),
			mcp.WithString("search",
				mcp.Description("Substring to search for in the search fields"),
			),
			mcp.WithArray("fields",
				mcp.Description("Field names to return. Omit for all columns."),
				mcp.WithStringItems(),
			),
			mcp.WithString("order",
				mcp.Description("Order clause (e.g. \"player_name ASC\")"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of records to return (default 25, max 1000)"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of records to skip for pagination"),
			),
			mcp.WithBoolean("include_count",
				mcp.Description("Also return the total number of matching records"),
			),
		),
		s.handleQuery,
	)

	s.addTool(srv,
		mcp.NewTool("touchline_get",
			mcp.WithDescription("Fetch one record of an entity by its key."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("entity",
				mcp.Required(),
				mcp.Description("Entity name"),
			),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Record key"),
			),
		),
		s.handleGet,
	)

	if s.opts.ReadOnly {
		return
	}

	// ----- Mutation tools -----

	s.addTool(srv,
		mcp.NewTool("touchline_insert",
			mcp.WithDescription(
				"Insert one record. The record maps field names to values; fields the "+
					"entity does not define are ignored. Generated keys are assigned by the "+
					"database and returned; any key in the record is ignored for such entities.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("entity",
				mcp.Required(),
				mcp.Description("Entity name"),
			),
			mcp.WithObject("record",
				mcp.Required(),
				mcp.Description("Field values, e.g. {\"team_name\": \"Leeds\", \"city\": \"Leeds\"}"),
			),
		),
		s.handleInsert,
	)

	s.addTool(srv,
		mcp.NewTool("touchline_update",
			mcp.WithDescription(
				"Update one record by key. Only the recognized fields in the record are "+
					"changed. A record with no recognized field is rejected.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("entity",
				mcp.Required(),
				mcp.Description("Entity name"),
			),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Record key"),
			),
			mcp.WithObject("record",
				mcp.Required(),
				mcp.Description("Field values to assign"),
			),
		),
		s.handleUpdate,
	)

	s.addTool(srv,
		mcp.NewTool("touchline_delete",
			mcp.WithDescription("Delete one record by key. Deleting a missing record is an error."),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{
				ReadOnlyHint:    boolPtr(false),
				DestructiveHint: boolPtr(true),
			}),
			mcp.WithString("entity",
				mcp.Required(),
				mcp.Description("Entity name"),
			),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Record key"),
			),
		),
		s.handleDelete,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

func (s *MCPServer) handleListEntities(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	public := s.entities.Catalog().Public()
	items := make([]model.EntitySummary, len(public))
	for i, e := range public {
		items[i] = model.SummarizeEntity(e)
		if s.opts.ReadOnly {
			items[i].ReadOnly = true
		}
	}
	return successJSON(items)
}

func (s *MCPServer) handleDescribeEntity(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := requireString(request, "entity")
	if err != nil {
		return toolError("%v. Available entities: %s", err, strings.Join(s.publicNames(), ", "))
	}
	e, err := s.entities.Entity(name)
	if err != nil {
		return s.serviceError("touchline_describe_entity", err)
	}
	return successJSON(model.DescribeEntity(e))
}

func (s *MCPServer) handleQuery(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := requireString(request, "entity")
	if err != nil {
		return toolError("%v. Available entities: %s", err, strings.Join(s.publicNames(), ", "))
	}

	filters, err := filterValues(getObjectArg(request, "filters"))
	if err != nil {
		return toolError("%v", err)
	}
	opts := service.ListOptions{
		Filters:      filters,
		Search:       optionalString(request, "search"),
		Order:        optionalString(request, "order"),
		Limit:        clamp(optionalInt(request, "limit", defaultQueryLimit), 1, service.MaxListLimit),
		Offset:       max(optionalInt(request, "offset", 0), 0),
		IncludeTotal: request.GetBool("include_count", false),
	}
	if fields := optionalStringSlice(request, "fields"); len(fields) > 0 {
		validated, err := query.ParseFieldSelection(strings.Join(fields, ","))
		if err != nil {
			return toolError("Invalid fields: %v", err)
		}
		opts.Fields = validated
	}

	res, err := s.entities.List(ctx, name, opts)
	if err != nil {
		return s.serviceError("touchline_query", err)
	}
	return successJSON(model.ListResponse{
		Resource: res.Records,
		Meta: &model.ResponseMeta{
			Count:  len(res.Records),
			Total:  res.Total,
			Limit:  opts.Limit,
			Offset: opts.Offset,
		},
	})
}

func (s *MCPServer) handleGet(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := requireString(request, "entity")
	if err != nil {
		return toolError("%v", err)
	}
	id, err := requireKey(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	rec, err := s.entities.Get(ctx, name, id)
	if err != nil {
		return s.serviceError("touchline_get", err)
	}
	return successJSON(rec)
}

func (s *MCPServer) handleInsert(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := requireString(request, "entity")
	if err != nil {
		return toolError("%v", err)
	}
	record := getObjectArg(request, "record")
	if record == nil {
		return toolError("missing required parameter \"record\" (an object of field values)")
	}
	e, err := s.entities.Entity(name)
	if err != nil {
		return s.serviceError("touchline_insert", err)
	}

	id, err := s.entities.Create(ctx, name, fieldmap.PayloadFromMap(record))
	if err != nil {
		return s.serviceError("touchline_insert", err)
	}
	s.logger.Info("mcp insert", "entity", e.Name, "id", id)
	return successJSON(model.CreatedResponse{Entity: e.Name, Key: e.Key, ID: id})
}

func (s *MCPServer) handleUpdate(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := requireString(request, "entity")
	if err != nil {
		return toolError("%v", err)
	}
	id, err := requireKey(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	record := getObjectArg(request, "record")
	if record == nil {
		return toolError("missing required parameter \"record\" (an object of field values)")
	}

	if err := s.entities.Update(ctx, name, id, fieldmap.PayloadFromMap(record)); err != nil {
		return s.serviceError("touchline_update", err)
	}
	s.logger.Info("mcp update", "entity", name, "id", id)
	return successJSON(model.AffectedResponse{Affected: 1})
}

func (s *MCPServer) handleDelete(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := requireString(request, "entity")
	if err != nil {
		return toolError("%v", err)
	}
	id, err := requireKey(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	if err := s.entities.Delete(ctx, name, id); err != nil {
		return s.serviceError("touchline_delete", err)
	}
	s.logger.Info("mcp delete", "entity", name, "id", id)
	return successJSON(model.AffectedResponse{Affected: 1})
}
