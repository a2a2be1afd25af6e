// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/devpulse/core/categorize"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the devpulse MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, categorizer *categorize.Categorizer, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"devpulse Productivity Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:     baseCfg,
		mgr:         mgr,
		categorizer: categorizer,
	}

	s.AddTool(mcp.NewTool("get_weekly_stats",
		mcp.WithDescription("Weekly productivity summed across repositories, newest week first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of weeks to return. Defaults to 50.")),
	), h.handleGetWeeklyStats)

	s.AddTool(mcp.NewTool("get_daily_detail",
		mcp.WithDescription("Per-repository statistics of one day plus a summary with the day type."),
		mcp.WithString("date", mcp.Description("Day to inspect in YYYY-MM-DD format."), mcp.Required()),
	), h.handleGetDailyDetail)

	s.AddTool(mcp.NewTool("get_raw_commits",
		mcp.WithDescription("Stored commits with their categorization, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of commits to return. Defaults to 100.")),
	), h.handleGetRawCommits)

	s.AddTool(mcp.NewTool("categorize_commit",
		mcp.WithDescription("Categorize a commit message into the weighted tag taxonomy."),
		mcp.WithString("message", mcp.Description("The full commit message."), mcp.Required()),
		mcp.WithArray("files", mcp.Description("Paths touched by the commit."), mcp.WithStringItems()),
		mcp.WithString("diff", mcp.Description("Unified diff of the commit, if available.")),
		mcp.WithBoolean("allow_external", mcp.Description("Escalate to the external classifier when the rules find nothing.")),
	), h.handleCategorizeCommit)

	s.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the tag taxonomy with weights, aliases and icons."),
	), h.handleListTags)

	return s
}

// StartMCPServer serves the devpulse MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager, categorizer *categorize.Categorizer, version string) error {
	s := NewMCPServer(baseCfg, mgr, categorizer, version)
	return server.ServeStdio(s)
}
