package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/service"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireString extracts a required string argument from the tool request.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil || strings.TrimSpace(val) == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// optionalString extracts an optional string argument from the tool request.
func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

// optionalInt extracts an optional integer argument from the tool request.
func optionalInt(request mcp.CallToolRequest, key string, defaultVal int) int {
	return request.GetInt(key, defaultVal)
}

// optionalStringSlice extracts an optional string slice argument from the tool request.
func optionalStringSlice(request mcp.CallToolRequest, key string) []string {
	return request.GetStringSlice(key, nil)
}

// requireKey extracts a record key. Agents send numbers as JSON numbers or
// strings; both are accepted if they hold an integer.
func requireKey(request mcp.CallToolRequest, key string) (int64, error) {
	args := request.GetArguments()
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			return 0, fmt.Errorf("parameter %q must be an integer", key)
		}
		return int64(v), nil
	case json.Number:
		return strconv.ParseInt(v.String(), 10, 64)
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %q must be an integer", key)
		}
		return id, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("parameter %q must be an integer", key)
	}
}

// getObjectArg extracts a map[string]interface{} argument from the tool request.
// Returns nil if the key is not present or not a map.
func getObjectArg(request mcp.CallToolRequest, key string) map[string]interface{} {
	args := request.GetArguments()
	if args == nil {
		return nil
	}
	m, _ := args[key].(map[string]interface{})
	return m
}

// filterValues renders filter arguments as the strings a query string would
// carry, so they go through the same coercion as REST filters.
func filterValues(m map[string]interface{}) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case string:
			out[k] = x
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(x)
		case json.Number:
			out[k] = x.String()
		default:
			return nil, fmt.Errorf("filter %q must be a string, number or boolean", k)
		}
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// serviceError converts a service failure to a tool error. Validation
// messages are returned verbatim; database failures are logged and
// reported generically.
func (s *MCPServer) serviceError(tool string, err error) (*mcp.CallToolResult, error) {
	var ve *fieldmap.ValidationError
	var de *database.Error

	switch {
	case errors.As(err, &ve):
		return toolError("Invalid input: %s", ve.Error())
	case errors.Is(err, service.ErrUnknownEntity):
		return toolError("Unknown entity. Available entities: %s", strings.Join(s.publicNames(), ", "))
	case errors.Is(err, service.ErrNotFound):
		return toolError("Record not found")
	case errors.Is(err, service.ErrReadOnly):
		return toolError("Entity is read-only")
	case errors.As(err, &de):
		s.logger.Error("mcp tool database failure", "tool", tool, "op", de.Op, "error", de.Err)
		return toolError("Database operation failed")
	default:
		s.logger.Error("mcp tool failure", "tool", tool, "error", err)
		return toolError("Internal error")
	}
}

func (s *MCPServer) publicNames() []string {
	public := s.entities.Catalog().Public()
	names := make([]string, len(public))
	for i, e := range public {
		names[i] = e.Name
	}
	return names
}

// clamp constrains val to [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
