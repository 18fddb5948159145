// Package main writes the request (draft-07) and response (draft 2020-12)
// JSON schemas of every history tool, for clients that do not read
// /openapi.json.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/timemachine/pkg/tools"
)

var outputDir string

func main() {
	flag.StringVar(&outputDir, "o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	for _, tool := range tools.Catalog {
		if err := writeToolSchemas(tool); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing schemas for %s: %v\n", tool.Name, err)
			os.Exit(1)
		}

		fmt.Printf("Generated schemas for %s\n", tool.Name)
	}

	fmt.Println("All schemas generated successfully")
}

func writeToolSchemas(tool tools.Tool) error {
	request, err := tools.RequestSchema(tool.Name)
	if err != nil {
		return err
	}

	err = os.WriteFile(filepath.Join(outputDir, tool.Name+".request.json"), request, 0o644)
	if err != nil {
		return fmt.Errorf("write request schema: %w", err)
	}

	response, err := responseSchema(tool)
	if err != nil {
		return err
	}

	return writeSchema(tool.Name+".response", response)
}

func responseSchema(tool tools.Tool) (*tools.Schema, error) {
	defs := make(map[string]*tools.Schema)

	root, err := tools.ResultSchema(tool.Result, "#/$defs/", defs)
	if err != nil {
		return nil, err
	}

	return &tools.Schema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		Title:       tool.Summary,
		Description: fmt.Sprintf("Successful response of the %s tool", tool.Name),
		Ref:         root.Ref,
		Defs:        defs,
	}, nil
}

func writeSchema(name string, schema *tools.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	path := filepath.Join(outputDir, name+".json")

	return os.WriteFile(path, data, 0o644)
}
