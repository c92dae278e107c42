package server

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/metricool-mcp/internal/domain/tool"
	"github.com/matiasleandrokruk/metricool-mcp/internal/version"
)

const instructions = `Read-only access to Metricool analytics for one account.
Call get_brands first to discover blog ids, then call a network tool with
init_date, end_date and blog_id. Date format is stated per tool.`

// NewMCPServer registers one MCP tool per catalog descriptor.
func NewMCPServer(d *tool.Dispatcher, logger *slog.Logger) *mcp.Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := mcp.NewServer(&mcp.Implementation{
		Name:    version.Name,
		Title:   "Metricool analytics",
		Version: version.Version,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: instructions,
	})

	openWorld := true
	for _, desc := range d.Catalog().List() {
		s.AddTool(&mcp.Tool{
			Name:        desc.Name,
			Title:       desc.Title,
			Description: desc.Description,
			InputSchema: desc.InputSchema(),
			Annotations: &mcp.ToolAnnotations{
				Title:          desc.Title,
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  &openWorld,
			},
		}, toolHandler(d, desc.Name))
	}
	return s
}

// toolHandler never returns a protocol error: failures travel as IsError
// results whose text is the tool's failure label.
func toolHandler(d *tool.Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw []byte
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		res := d.Invoke(ctx, name, raw)
		return &mcp.CallToolResult{
			IsError: res.Failed(),
			Content: []mcp.Content{&mcp.TextContent{Text: res.Text()}},
		}, nil
	}
}
