package api

import (
	"net/http"

	"github.com/Sumatoshi-tech/timemachine/pkg/tools"
)

// PluginManifest is served at /.well-known/ai-plugin.json.
type PluginManifest struct {
	SchemaVersion       string       `json:"schema_version"`
	NameForHuman        string       `json:"name_for_human"`
	NameForModel        string       `json:"name_for_model"`
	DescriptionForHuman string       `json:"description_for_human"`
	DescriptionForModel string       `json:"description_for_model"`
	Auth                ManifestAuth `json:"auth"`
	API                 ManifestAPI  `json:"api"`
	LogoURL             string       `json:"logo_url"`
	ContactEmail        string       `json:"contact_email"`
	LegalInfoURL        string       `json:"legal_info_url"`
}

// ManifestAuth declares the authentication scheme.
type ManifestAuth struct {
	Type string `json:"type"`
}

// ManifestAPI points at the OpenAPI document.
type ManifestAPI struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Metadata is served at /metadata.
type Metadata struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	ToolsJSONSchema string `json:"tools_json_schema"`
	ToolsURL        string `json:"tools_url"`
	Version         string `json:"version"`
}

const openAPIPath = "/openapi.json"

// Manifest returns the plugin manifest.
func Manifest() PluginManifest {
	return PluginManifest{
		SchemaVersion:       "v1",
		NameForHuman:        tools.ServiceName,
		NameForModel:        tools.ServiceModelName,
		DescriptionForHuman: tools.HumanDescription,
		DescriptionForModel: tools.ModelDescription,
		Auth:                ManifestAuth{Type: "none"},
		API:                 ManifestAPI{Type: "openapi", URL: openAPIPath},
		LogoURL:             "https://example.com/logo.png",
		ContactEmail:        "contact@example.com",
		LegalInfoURL:        "https://example.com/legal",
	}
}

func (s *Server) handleManifest(rw http.ResponseWriter, hr *http.Request) {
	writeJSON(hr.Context(), rw, http.StatusOK, Manifest())
}

func (s *Server) handleMetadata(rw http.ResponseWriter, hr *http.Request) {
	writeJSON(hr.Context(), rw, http.StatusOK, Metadata{
		Name:            tools.ServiceName,
		Description:     tools.ServiceDescription,
		ToolsJSONSchema: openAPIPath,
		ToolsURL:        "/tools",
		Version:         s.opts.Version,
	})
}

func (s *Server) handleOpenAPI(rw http.ResponseWriter, hr *http.Request) {
	doc, err := OpenAPIDocument(s.opts.Version)
	if err != nil {
		writeError(hr.Context(), rw, http.StatusInternalServerError, "other", err.Error())

		return
	}

	writeJSON(hr.Context(), rw, http.StatusOK, doc)
}

// componentsPrefix is where OpenAPI references resolve schemas.
const componentsPrefix = "#/components/schemas/"

// OpenAPIDocument builds the OpenAPI 3 description of the tool routes.
// Request bodies reuse the schemas the server validates against; responses
// are derived from the result types.
func OpenAPIDocument(version string) (map[string]any, error) {
	paths := make(map[string]any, len(tools.Catalog))
	schemas := make(map[string]any)
	defs := make(map[string]*tools.Schema)

	errorRef, err := tools.ResultSchema(ErrorResponse{}, componentsPrefix, defs)
	if err != nil {
		return nil, err
	}

	for _, tool := range tools.Catalog {
		schema, err := tools.RequestSchemaObject(tool.Name)
		if err != nil {
			return nil, err
		}

		delete(schema, "$schema")

		result, err := tools.ResultSchema(tool.Result, componentsPrefix, defs)
		if err != nil {
			return nil, err
		}

		title, _ := schema["title"].(string)
		schemas[title] = schema

		paths[tool.Route()] = map[string]any{
			"post": map[string]any{
				"operationId": tool.Name,
				"summary":     tool.Summary,
				"description": tool.Description,
				"tags":        []string{tools.ServiceName},
				"requestBody": map[string]any{
					"required": true,
					"content":  jsonContent(map[string]any{"$ref": componentsPrefix + title}),
				},
				"responses": toolResponses(result, errorRef),
			},
		}
	}

	for name, def := range defs {
		schemas[name] = def
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":       tools.ServiceName,
			"description": tools.ServiceDescription,
			"version":     version,
		},
		"tags": []map[string]any{
			{"name": tools.ServiceName, "description": "Git history exploration tools"},
		},
		"paths":      paths,
		"components": map[string]any{"schemas": schemas},
	}, nil
}

func jsonContent(schema any) map[string]any {
	return map[string]any{
		"application/json": map[string]any{"schema": schema},
	}
}

func toolResponses(result, errorBody *tools.Schema) map[string]any {
	failure := func(description string) map[string]any {
		return map[string]any{"description": description, "content": jsonContent(errorBody)}
	}

	return map[string]any{
		"200": map[string]any{"description": "Success", "content": jsonContent(result)},
		"400": failure("Invalid request or commit identifier"),
		"404": failure("File not found"),
		"422": failure("Content is not UTF-8 text"),
		"500": failure("Repository or internal error"),
	}
}
