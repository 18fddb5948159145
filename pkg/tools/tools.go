// Package tools names the five history tools and carries their request
// schemas. The HTTP API, the MCP server and the published documents all
// describe the tools from this catalogue.
package tools

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
)

// Tool names as exposed over HTTP (/tools/<name>) and MCP.
const (
	NameBlame            = "get_git_blame"
	NameCommitDiff       = "get_commit_diff"
	NameSummarizeDiff    = "summarize_diff"
	NameCommitsAffecting = "get_commits_affecting"
	NameFileAtCommit     = "get_file_at_commit"
)

// Service identity used by the manifest, the metadata document and MCP.
const (
	ServiceName        = "Git Time Machine"
	ServiceModelName   = "git_time_machine"
	ServiceDescription = "A tool for exploring Git history and tracking file evolution over time"
	HumanDescription   = "Explore Git history, diffs, and file evolution over time."
	ModelDescription   = "Use this plugin to explore Git history, diffs, and file evolution over time. " +
		"You can retrieve blame information, commit diffs, file history, and more."
)

// Tool describes one history tool.
type Tool struct {
	Name        string
	Summary     string
	Description string
	// Result is a zero value of the tool's success payload.
	Result any
}

// Route is the HTTP path of the tool.
func (t Tool) Route() string {
	return "/tools/" + t.Name
}

// Catalog lists the tools in presentation order.
var Catalog = []Tool{
	{
		Name:    NameBlame,
		Summary: "Get git blame for a file",
		Description: "Attribute every line of a working-tree file to the commit that last changed it. " +
			"The path is relative to the repository root.",
		Result: history.BlameResult{},
	},
	{
		Name:        NameCommitDiff,
		Summary:     "Get the diff of a commit",
		Description: "Show the file changes a commit made relative to its first parent, with unified diff text per file.",
		Result:      history.CommitDiff{},
	},
	{
		Name:    NameSummarizeDiff,
		Summary: "Summarize changes between two commits",
		Description: "Diff the tree of a base commit against the tree of a head commit and " +
			"return per-file changes, totals and a one-line summary.",
		Result: history.DiffSummary{},
	},
	{
		Name:    NameCommitsAffecting,
		Summary: "List commits that modified a file",
		Description: "List non-merge commits touching a file, newest first. " +
			"The limit defaults to 50 when omitted; a limit of 0 returns no commits.",
		Result: history.CommitsAffectingResult{},
	},
	{
		Name:        NameFileAtCommit,
		Summary:     "Get a file as it existed at a commit",
		Description: "Return the text content of a file as recorded in a commit.",
		Result:      history.FileAtCommitResult{},
	},
}

//go:embed schemas/*.json
var schemaFS embed.FS

// Lookup returns the catalogue entry for name.
func Lookup(name string) (Tool, bool) {
	for _, tool := range Catalog {
		if tool.Name == name {
			return tool, true
		}
	}

	return Tool{}, false
}

// RequestSchema returns the JSON Schema of the tool's request body.
func RequestSchema(name string) ([]byte, error) {
	data, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("request schema for %s: %w", name, err)
	}

	return data, nil
}

// RequestSchemaObject returns the decoded request schema of the tool.
func RequestSchemaObject(name string) (map[string]any, error) {
	data, err := RequestSchema(name)
	if err != nil {
		return nil, err
	}

	var schema map[string]any

	err = json.Unmarshal(data, &schema)
	if err != nil {
		return nil, fmt.Errorf("decode request schema for %s: %w", name, err)
	}

	return schema, nil
}
