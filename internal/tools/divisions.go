package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TimPelgrim/exactonline-mcp/internal/exact"
)

type listDivisionsInput struct{}

type listDivisionsOutput struct {
	ErrorInfo
	Divisions []exact.Division `json:"divisions,omitempty"`
	Count     int              `json:"count"`
}

func (ts *toolset) listDivisions(ctx context.Context, _ *mcp.CallToolRequest, _ listDivisionsInput) (*mcp.CallToolResult, listDivisionsOutput, error) {
	divisions, err := ts.client.Divisions(ctx)
	if err != nil {
		return nil, listDivisionsOutput{ErrorInfo: ts.errorInfo("list_divisions", err)}, nil
	}
	return nil, listDivisionsOutput{Divisions: divisions, Count: len(divisions)}, nil
}

type listEndpointsInput struct {
	Category string `json:"category,omitempty"`
}

type listEndpointsOutput struct {
	ErrorInfo
	Categories []string         `json:"categories,omitempty"`
	Endpoints  []exact.Endpoint `json:"endpoints,omitempty"`
	Count      int              `json:"count"`
}

func (ts *toolset) listEndpoints(_ context.Context, _ *mcp.CallToolRequest, input listEndpointsInput) (*mcp.CallToolResult, listEndpointsOutput, error) {
	category := strings.TrimSpace(strings.ToLower(input.Category))
	endpoints := exact.EndpointsByCategory(category)
	if category != "" && len(endpoints) == 0 {
		return nil, listEndpointsOutput{ErrorInfo: ErrorInfo{
			Error:   string(exact.KindInvalidParameter),
			Message: "Unknown category: " + input.Category,
			Action:  "Use one of: " + strings.Join(exact.Categories(), ", "),
		}}, nil
	}
	return nil, listEndpointsOutput{
		Categories: exact.Categories(),
		Endpoints:  endpoints,
		Count:      len(endpoints),
	}, nil
}

type exploreEndpointInput struct {
	Endpoint string `json:"endpoint"`
	Division int    `json:"division,omitempty"`
	Top      int    `json:"top,omitempty"`
	Select   string `json:"select,omitempty"`
	Filter   string `json:"filter,omitempty"`
}

type exploreEndpointOutput struct {
	ErrorInfo
	Endpoint        string           `json:"endpoint,omitempty"`
	Division        int              `json:"division,omitempty"`
	Count           int              `json:"count"`
	Data            []map[string]any `json:"data,omitempty"`
	AvailableFields []string         `json:"available_fields,omitempty"`
}

func (ts *toolset) exploreEndpoint(ctx context.Context, _ *mcp.CallToolRequest, input exploreEndpointInput) (*mcp.CallToolResult, exploreEndpointOutput, error) {
	if strings.TrimSpace(input.Endpoint) == "" {
		return nil, exploreEndpointOutput{ErrorInfo: ErrorInfo{
			Error:   string(exact.KindInvalidParameter),
			Message: "endpoint is required",
			Action:  "Pass an endpoint path such as crm/Accounts; see list_endpoints",
		}}, nil
	}

	var selectFields []string
	if input.Select != "" {
		for _, field := range strings.Split(input.Select, ",") {
			if field = strings.TrimSpace(field); field != "" {
				selectFields = append(selectFields, field)
			}
		}
	}

	result, err := ts.client.Explore(ctx, input.Endpoint, input.Division, input.Top, selectFields, input.Filter)
	if err != nil {
		return nil, exploreEndpointOutput{ErrorInfo: ts.errorInfo("explore_endpoint", err)}, nil
	}
	return nil, exploreEndpointOutput{
		Endpoint:        result.Endpoint,
		Division:        result.Division,
		Count:           result.Count,
		Data:            result.Data,
		AvailableFields: result.AvailableFields,
	}, nil
}
