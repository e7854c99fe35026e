// Package groove defines the groove definition read from disk and the
// normalized request pushed to the registry.
//
// A groove is a named tool definition: a display name, an input schema and an
// ordered list of beats. Definitions are parsed from YAML by the loader
// package; every field is optional and BuildRequest fills the gaps.
package groove

import (
	"path/filepath"
	"strings"
)

// Definition is the parsed content of one groove file. Pointer and nil-able
// fields distinguish "absent" from "present but empty".
type Definition struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	ToolName    string         `json:"toolName"`
	InputSchema map[string]any `json:"inputSchema"`
	Beats       []any          `json:"beats"`
}

// Request is the payload sent to the registry for one groove. The source
// file path is never part of it.
type Request struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ToolName    string         `json:"toolName"`
	InputSchema map[string]any `json:"inputSchema"`
	Beats       []any          `json:"beats"`
}

// DefaultTextDescription describes the single text property of the default
// input schema.
const DefaultTextDescription = "The text to expand using this groove"

// DefaultInputSchema returns the schema used when a definition has none: an
// object requiring one string property named "text". A fresh value is
// returned on every call.
func DefaultInputSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"text"},
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": DefaultTextDescription,
			},
		},
	}
}

// DeriveToolName returns the explicit toolName when set, otherwise the base
// name of path without its extension.
func DeriveToolName(def Definition, path string) string {
	// Surrounding whitespace is dropped; a blank toolName counts as unset.
	if name := strings.TrimSpace(def.ToolName); name != "" {
		return name
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return base
	}
	return stem
}

// BuildRequest resolves def into a Request, applying the defaults for every
// missing field.
func BuildRequest(def Definition, path string) Request {
	toolName := DeriveToolName(def, path)

	req := Request{
		Name:        toolName,
		ToolName:    toolName,
		InputSchema: def.InputSchema,
		Beats:       def.Beats,
	}
	if def.Name != nil {
		req.Name = *def.Name
	}
	if def.Description != nil {
		req.Description = *def.Description
	}
	if req.InputSchema == nil {
		req.InputSchema = DefaultInputSchema()
	}
	if req.Beats == nil {
		req.Beats = []any{}
	}
	return req
}
