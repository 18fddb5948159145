package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
)

// BlameRequest is the body of POST /tools/get_git_blame.
type BlameRequest struct {
	File string `json:"file"`
}

// CommitDiffRequest is the body of POST /tools/get_commit_diff.
type CommitDiffRequest struct {
	SHA string `json:"sha"`
}

// SummarizeDiffRequest is the body of POST /tools/summarize_diff.
type SummarizeDiffRequest struct {
	Base string `json:"base"`
	Head string `json:"head"`
}

// CommitsAffectingRequest is the body of POST /tools/get_commits_affecting.
type CommitsAffectingRequest struct {
	File  string `json:"file"`
	Limit *int   `json:"limit"`
}

// FileAtCommitRequest is the body of POST /tools/get_file_at_commit.
type FileAtCommitRequest struct {
	File string `json:"file"`
	SHA  string `json:"sha"`
}

var errInvalidRequest = errors.New("invalid request")

func (s *Server) blame(ctx context.Context, req BlameRequest) (any, error) {
	return s.engine.Blame(ctx, req.File)
}

func (s *Server) commitDiff(ctx context.Context, req CommitDiffRequest) (any, error) {
	return s.engine.CommitDiff(ctx, req.SHA)
}

func (s *Server) summarizeDiff(ctx context.Context, req SummarizeDiffRequest) (any, error) {
	return s.engine.SummarizeDiff(ctx, req.Base, req.Head)
}

func (s *Server) commitsAffecting(ctx context.Context, req CommitsAffectingRequest) (any, error) {
	limit := history.UseDefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	return s.engine.CommitsAffecting(ctx, req.File, limit)
}

func (s *Server) fileAtCommit(ctx context.Context, req FileAtCommitRequest) (any, error) {
	return s.engine.FileAtCommit(ctx, req.File, req.SHA)
}

// handleTool decodes and validates a tool request, runs it and writes the
// result or an ErrorResponse.
func handleTool[Req any](s *Server, name string, run func(context.Context, Req) (any, error)) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		ctx := hr.Context()
		start := time.Now()

		req, err := decodeRequest[Req](s, name, rw, hr)
		if err != nil {
			s.logger.WarnContext(ctx, "rejected tool request", "tool", name, "error", err)
			writeError(ctx, rw, http.StatusBadRequest, codeInvalidRequest, err.Error())

			return
		}

		result, err := run(ctx, req)
		if err != nil {
			kind := history.KindOf(err)
			status := statusForKind(kind)

			s.logger.ErrorContext(ctx, "tool failed", "tool", name, "error_kind", kind.String(), "error", err,
				"duration", time.Since(start))

			if s.opts.Metrics != nil {
				s.opts.Metrics.RecordError(ctx, name, kind.String())
			}

			writeError(ctx, rw, status, kind.String(), err.Error())

			return
		}

		s.logger.InfoContext(ctx, "tool request", "tool", name, "duration", time.Since(start))
		writeJSON(ctx, rw, http.StatusOK, result)
	})
}

func decodeRequest[Req any](s *Server, name string, rw http.ResponseWriter, hr *http.Request) (Req, error) {
	var req Req

	body, err := io.ReadAll(http.MaxBytesReader(rw, hr.Body, s.opts.MaxBodyBytes))
	if err != nil {
		return req, fmt.Errorf("%w: read body: %w", errInvalidRequest, err)
	}

	result, err := s.schemas[name].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return req, fmt.Errorf("%w: body is not valid JSON: %w", errInvalidRequest, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			details = append(details, verr.String())
		}

		return req, fmt.Errorf("%w: %s", errInvalidRequest, strings.Join(details, "; "))
	}

	err = json.Unmarshal(body, &req)
	if err != nil {
		return req, fmt.Errorf("%w: %w", errInvalidRequest, err)
	}

	return req, nil
}
