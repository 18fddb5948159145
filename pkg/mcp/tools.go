package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
	"github.com/Sumatoshi-tech/timemachine/pkg/tools"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyFile indicates the file parameter is empty.
	ErrEmptyFile = errors.New("file parameter is required and must not be empty")
	// ErrEmptySHA indicates a commit parameter is empty.
	ErrEmptySHA = errors.New("commit sha parameter is required and must not be empty")
	// ErrNegativeLimit indicates the limit parameter is below zero.
	ErrNegativeLimit = errors.New("limit must not be negative")
)

// Input types (auto-generate JSON schemas via struct tags).

// BlameInput is the input schema for the get_git_blame tool.
type BlameInput struct {
	File string `json:"file" jsonschema:"path to the file, relative to the repository root"`
}

// CommitDiffInput is the input schema for the get_commit_diff tool.
type CommitDiffInput struct {
	SHA string `json:"sha" jsonschema:"commit sha, full or abbreviated to at least 4 hex digits"`
}

// SummarizeDiffInput is the input schema for the summarize_diff tool.
type SummarizeDiffInput struct {
	Base string `json:"base" jsonschema:"base commit sha"`
	Head string `json:"head" jsonschema:"head commit sha"`
}

// CommitsAffectingInput is the input schema for the get_commits_affecting tool.
type CommitsAffectingInput struct {
	File  string `json:"file"            jsonschema:"path to the file to analyze"`
	Limit *int   `json:"limit,omitempty" jsonschema:"maximum number of commits to return (default: 50)"`
}

// FileAtCommitInput is the input schema for the get_file_at_commit tool.
type FileAtCommitInput struct {
	File string `json:"file" jsonschema:"path to the file"`
	SHA  string `json:"sha"  jsonschema:"commit sha"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleBlame(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input BlameInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.File == "" {
		return errorResult(ErrEmptyFile)
	}

	result, err := s.engine.Blame(ctx, input.File)
	if err != nil {
		return s.failure(ctx, tools.NameBlame, err)
	}

	return jsonResult(result)
}

func (s *Server) handleCommitDiff(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CommitDiffInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.SHA == "" {
		return errorResult(ErrEmptySHA)
	}

	result, err := s.engine.CommitDiff(ctx, input.SHA)
	if err != nil {
		return s.failure(ctx, tools.NameCommitDiff, err)
	}

	return jsonResult(result)
}

func (s *Server) handleSummarizeDiff(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input SummarizeDiffInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Base == "" || input.Head == "" {
		return errorResult(ErrEmptySHA)
	}

	result, err := s.engine.SummarizeDiff(ctx, input.Base, input.Head)
	if err != nil {
		return s.failure(ctx, tools.NameSummarizeDiff, err)
	}

	return jsonResult(result)
}

func (s *Server) handleCommitsAffecting(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CommitsAffectingInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.File == "" {
		return errorResult(ErrEmptyFile)
	}

	limit := history.UseDefaultLimit
	if input.Limit != nil {
		if *input.Limit < 0 {
			return errorResult(fmt.Errorf("%w: %d", ErrNegativeLimit, *input.Limit))
		}

		limit = *input.Limit
	}

	result, err := s.engine.CommitsAffecting(ctx, input.File, limit)
	if err != nil {
		return s.failure(ctx, tools.NameCommitsAffecting, err)
	}

	return jsonResult(result)
}

func (s *Server) handleFileAtCommit(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input FileAtCommitInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.File == "" {
		return errorResult(ErrEmptyFile)
	}

	if input.SHA == "" {
		return errorResult(ErrEmptySHA)
	}

	result, err := s.engine.FileAtCommit(ctx, input.File, input.SHA)
	if err != nil {
		return s.failure(ctx, tools.NameFileAtCommit, err)
	}

	return jsonResult(result)
}

// failure logs an engine error, counts it by kind and turns it into an
// error result prefixed with the kind.
func (s *Server) failure(ctx context.Context, tool string, err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	kind := history.KindOf(err)

	s.logger.ErrorContext(ctx, "tool failed", "tool", tool, "error_kind", kind.String(), "error", err)

	if s.metrics != nil {
		s.metrics.RecordError(ctx, mcpSpanPrefix+tool, kind.String())
	}

	return errorResult(fmt.Errorf("%s: %w", kind, err))
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
