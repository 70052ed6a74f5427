// Package mcpserver registers the banking tools with the MCP host
// runtime and serializes gateway results and errors onto the wire.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nklymok/monobank-mcp/internal/service"
)

const serverName = "monobank"

// New builds the MCP server with both tools registered.
func New(gateway *service.Gateway, version string) *server.MCPServer {
	s := server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))

	clientInfoTool := mcp.NewTool(service.ToolClientInfo,
		mcp.WithDescription("Get client information from the Monobank API: "+
			"the client, their accounts and jars. Rate limit: 1 request per 60 seconds."),
	)
	s.AddTool(clientInfoTool, handleClientInfo(gateway))

	statementTool := mcp.NewTool(service.ToolStatement,
		mcp.WithDescription("Get the account statement for a period. "+
			"Rate limit: 1 request per 60 seconds. Max period: 31 days."),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account or jar identifier from the accounts list."),
		),
		mcp.WithNumber("from_timestamp",
			mcp.Required(),
			mcp.Description("Start of the statement period (Unix timestamp, seconds)."),
		),
		mcp.WithNumber("to_timestamp",
			mcp.Required(),
			mcp.Description("End of the statement period (Unix timestamp, seconds)."),
		),
	)
	s.AddTool(statementTool, handleStatement(gateway))

	return s
}

func handleClientInfo(g *service.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, err := g.GetClientInfo(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(info)
	}
}

func handleStatement(g *service.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		accountID, err := req.RequireString("account_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		from, err := req.RequireInt("from_timestamp")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		to, err := req.RequireInt("to_timestamp")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := g.GetStatement(ctx, accountID, int64(from), int64(to))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(result)
	}
}

// jsonResult renders a gateway result as a JSON text content block.
// Per-call errors never cross the tool boundary as protocol failures.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
