package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/devpulse/core/categorize"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxRawCommits caps get_raw_commits regardless of the requested limit.
const maxRawCommits = 1000

var errNoStatsStore = errors.New("stats store is not configured")

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg     *contract.Config
	mgr         contract.CacheManager
	categorizer *categorize.Categorizer
}

func (h *toolHandler) statsStore() (contract.StatsStore, error) {
	if h.mgr == nil {
		return nil, errNoStatsStore
	}
	store := h.mgr.GetStatsStore()
	if store == nil {
		return nil, errNoStatsStore
	}
	return store, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetWeeklyStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := h.statsStore()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", contract.DefaultWeeklyLimit)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be at least 1"), nil
	}

	weeks, err := store.WeeklySummaries(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load weekly stats: %v", err)), nil
	}
	if weeks == nil {
		weeks = []schema.WeeklySummary{}
	}
	return jsonResult(weeks)
}

func (h *toolHandler) handleGetDailyDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := h.statsStore()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw := request.GetString("date", "")
	date, err := time.Parse(schema.DateLayout, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", raw)), nil
	}

	detail, err := store.DailyDetail(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load daily detail: %v", err)), nil
	}
	if detail.Repos == nil {
		detail.Repos = []schema.DailyStatsRow{}
	}
	return jsonResult(detail)
}

func (h *toolHandler) handleGetRawCommits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := h.statsStore()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", contract.DefaultRawCommitLimit)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be at least 1"), nil
	}

	commits, err := store.RawCommits(ctx, min(limit, maxRawCommits))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load commits: %v", err)), nil
	}

	type rawCommit struct {
		schema.StoredCommit
		Analysis *schema.CommitAnalysis `json:"analysis,omitempty"`
	}
	out := make([]rawCommit, len(commits))
	for i, c := range commits {
		out[i] = rawCommit{StoredCommit: c}
		if a, err := schema.DecodeCommitAnalysis(c.Analysis); err == nil {
			out[i].Analysis = &a
		}
	}
	return jsonResult(out)
}

func (h *toolHandler) handleCategorizeCommit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := request.GetString("message", "")
	if message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}
	in := categorize.Input{
		Message: message,
		Files:   request.GetStringSlice("files", nil),
		Diff:    request.GetString("diff", ""),
	}
	allowExternal := request.GetBool("allow_external", h.baseCfg.UseLLM)

	res := h.categorizer.Categorize(ctx, in, allowExternal)
	return jsonResult(res)
}

func (h *toolHandler) handleListTags(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.categorizer.Registry().Tags())
}
