package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"levelboard://batches",
			"Batch List",
			mcplib.WithResourceDescription("All level batches with status and progress"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleBatchesResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"levelboard://workscope/presets",
			"Work Scope Presets",
			mcplib.WithResourceDescription("Named level-range shortcuts for review assignments"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handlePresetsResource,
	)
}

// jsonContents marshals v into the single-document JSON resource shape the
// protocol expects.
func jsonContents(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleBatchesResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.BatchReader == nil {
		return nil, fmt.Errorf("resource %s: batch reader not configured", req.Params.URI)
	}
	batches, err := s.deps.BatchReader.List(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, batches)
}

func (s *Server) handlePresetsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.WorkscopeReader == nil {
		return nil, fmt.Errorf("resource %s: workscope reader not configured", req.Params.URI)
	}
	return jsonContents(req.Params.URI, s.deps.WorkscopeReader.Presets())
}
