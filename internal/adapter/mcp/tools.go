package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/playforge/levelboard/internal/domain/level"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listBatchesTool(),
		s.getBatchTool(),
		s.workscopeStatsTool(),
		s.listPendingLevelsTool(),
		s.previewTriageTool(),
	)
}

func (s *Server) listBatchesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_batches",
		mcplib.WithDescription("List all level batches tracked by LevelBoard"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListBatches,
	}
}

func (s *Server) getBatchTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_batch",
		mcplib.WithDescription("Get details of a specific batch by ID"),
		mcplib.WithString("batch_id",
			mcplib.Required(),
			mcplib.Description("The batch ID to look up"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetBatch,
	}
}

func (s *Server) workscopeStatsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("workscope_stats",
		mcplib.WithDescription("Get approval statistics for a batch under its active work scope filter"),
		mcplib.WithString("batch_id",
			mcplib.Required(),
			mcplib.Description("The batch to compute stats for"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleWorkscopeStats,
	}
}

func (s *Server) listPendingLevelsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_pending_levels",
		mcplib.WithDescription("List the levels of a batch still awaiting a verdict"),
		mcplib.WithString("batch_id",
			mcplib.Required(),
			mcplib.Description("The batch whose pending levels to list"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListPendingLevels,
	}
}

func (s *Server) previewTriageTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("preview_triage",
		mcplib.WithDescription("Classify a batch's pending levels with the configured thresholds without applying any verdicts"),
		mcplib.WithString("batch_id",
			mcplib.Required(),
			mcplib.Description("The batch to classify"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handlePreviewTriage,
	}
}

func (s *Server) handleListBatches(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.BatchReader == nil {
		return mcplib.NewToolResultError("batch reader not configured"), nil
	}
	batches, err := s.deps.BatchReader.List(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list batches", err), nil
	}
	data, err := json.Marshal(batches)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal batches", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetBatch(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.BatchReader == nil {
		return mcplib.NewToolResultError("batch reader not configured"), nil
	}
	args := req.GetArguments()
	batchID, ok := args["batch_id"].(string)
	if !ok || batchID == "" {
		return mcplib.NewToolResultError("batch_id is required"), nil
	}
	b, err := s.deps.BatchReader.Get(ctx, batchID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get batch %s", batchID), err,
		), nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal batch", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleWorkscopeStats(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.WorkscopeReader == nil {
		return mcplib.NewToolResultError("workscope reader not configured"), nil
	}
	args := req.GetArguments()
	batchID, ok := args["batch_id"].(string)
	if !ok || batchID == "" {
		return mcplib.NewToolResultError("batch_id is required"), nil
	}
	stats, err := s.deps.WorkscopeReader.ActiveStats(ctx, batchID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to compute stats for batch %s", batchID), err,
		), nil
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal stats", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleListPendingLevels(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.LevelReader == nil {
		return mcplib.NewToolResultError("level reader not configured"), nil
	}
	args := req.GetArguments()
	batchID, ok := args["batch_id"].(string)
	if !ok || batchID == "" {
		return mcplib.NewToolResultError("batch_id is required"), nil
	}
	levels, err := s.deps.LevelReader.List(ctx, batchID, "")
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to list levels for batch %s", batchID), err,
		), nil
	}
	pending := make([]level.Level, 0, len(levels))
	for _, lvl := range levels {
		if !lvl.Status.Terminal() {
			pending = append(pending, lvl)
		}
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal levels", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handlePreviewTriage(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.TriagePreviewer == nil {
		return mcplib.NewToolResultError("triage previewer not configured"), nil
	}
	args := req.GetArguments()
	batchID, ok := args["batch_id"].(string)
	if !ok || batchID == "" {
		return mcplib.NewToolResultError("batch_id is required"), nil
	}
	buckets, err := s.deps.TriagePreviewer.Preview(ctx, batchID, nil)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to preview triage for batch %s", batchID), err,
		), nil
	}
	data, err := json.Marshal(buckets)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal preview", err), nil
	}
	return toolResultJSON(string(data)), nil
}
