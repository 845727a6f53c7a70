// Package mcp exposes watsonx generation as MCP (Model Context Protocol)
// tools so agents can call the gateway directly.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/watsonx/pkg/utils"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
)

// Generator is the part of *watsonx.Client the tools call.
type Generator interface {
	GenerateWithConfig(ctx context.Context, prompt string, cfg watsonx.GenerationConfig) (*watsonx.GenerationResult, error)
	GenerateBatch(ctx context.Context, reqs []watsonx.BatchRequest, cfg watsonx.GenerationConfig) (*watsonx.BatchGenerationResult, error)
	ListModels(ctx context.Context) ([]watsonx.ModelInfo, error)
}

type Config struct {
	// Generator serves every tool. Required unless Noop is set.
	Generator Generator

	// Defaults returns the generation settings tools start from. When nil,
	// watsonx.DefaultGenerationConfig is used.
	Defaults func() watsonx.GenerationConfig

	// Noop for an MCP server with no tools
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates an MCP server with the generate, batch_generate and
// list_models tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "watsonx",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Generator == nil {
			return nil, errors.New("generator is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}
		if s.config.Defaults == nil {
			s.config.Defaults = watsonx.DefaultGenerationConfig
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        generateToolName,
			Description: generateDescription,
		}, s.handleGenerate)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        batchToolName,
			Description: batchDescription,
		}, s.handleBatchGenerate)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        listModelsToolName,
			Description: listModelsDescription,
		}, s.handleListModels)
	}

	s.mcpServer = mcpServer

	// stateless streamable HTTP
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// toolError reports a failure to the calling model rather than the protocol.
func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult returns out both as structured output and as serialized JSON
// text for clients that only read content blocks.
func jsonResult(out any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil
}
