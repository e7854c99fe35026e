package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/groovesync/groove"
)

// ParseKind classifies why a groove file could not be loaded.
type ParseKind string

const (
	// ParseKindRead means the file could not be read.
	ParseKindRead ParseKind = "READ_FAILURE"
	// ParseKindSyntax means the file is not valid YAML or not a groove mapping.
	ParseKindSyntax ParseKind = "PARSE_FAILURE"
)

// ParseError reports a groove file that could not be turned into a
// definition.
type ParseError struct {
	Path string
	Kind ParseKind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Summary())
}

// Unwrap exposes the underlying read or decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Summary is the one-line description used in CI annotations.
func (e *ParseError) Summary() string {
	if e.Kind == ParseKindRead {
		return fmt.Sprintf("Error reading file: %v", e.Err)
	}
	return fmt.Sprintf("Error parsing YAML: %v", e.Err)
}

// Summary returns the annotation text for an error returned by Load.
func Summary(err error) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Summary()
	}
	return "Error reading file: " + err.Error()
}

// Load reads path and parses it as a groove definition. Any failure is
// returned as a *ParseError.
func Load(path string) (groove.Definition, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from discovery
	if err != nil {
		return groove.Definition{}, &ParseError{Path: path, Kind: ParseKindRead, Err: err}
	}
	def, err := Parse(data)
	if err != nil {
		return groove.Definition{}, &ParseError{Path: path, Kind: ParseKindSyntax, Err: err}
	}
	return def, nil
}

// Groove document keys. Lookups are exact: "Description" is not "description".
const (
	keyName        = "name"
	keyDescription = "description"
	keyToolName    = "toolName"
	keyInputSchema = "inputSchema"
	keyBeats       = "beats"
)

// Parse decodes YAML bytes into a groove definition. The document must be a
// mapping; an empty document is rejected. Scalars inside inputSchema and
// beats keep the type YAML resolved them to, so integers stay integers.
func Parse(data []byte) (groove.Definition, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return groove.Definition{}, err
	}

	var def groove.Definition
	if def.Name, err = optionalString(doc, keyName); err != nil {
		return groove.Definition{}, err
	}
	if def.Description, err = optionalString(doc, keyDescription); err != nil {
		return groove.Definition{}, err
	}
	toolName, err := optionalString(doc, keyToolName)
	if err != nil {
		return groove.Definition{}, err
	}
	if toolName != nil {
		def.ToolName = *toolName
	}
	if v := doc[keyInputSchema]; v != nil {
		schema, ok := v.(map[string]any)
		if !ok {
			return groove.Definition{}, fieldTypeError(keyInputSchema, "a mapping", v)
		}
		def.InputSchema = schema
	}
	if v := doc[keyBeats]; v != nil {
		beats, ok := v.([]any)
		if !ok {
			return groove.Definition{}, fieldTypeError(keyBeats, "a sequence", v)
		}
		def.Beats = beats
	}
	return def, nil
}

// decodeDocument unmarshals a YAML mapping document and checks that it can
// be sent as JSON: nested mappings with non-string keys and non-finite
// floats are rejected here rather than when the request is encoded.
func decodeDocument(data []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("document is empty")
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document must be a mapping with string keys, got %s", yamlKind(raw))
	}
	if _, err := json.Marshal(doc); err != nil {
		return nil, fmt.Errorf("document is not JSON-compatible: %w", err)
	}
	return doc, nil
}

func optionalString(doc map[string]any, key string) (*string, error) {
	v := doc[key]
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fieldTypeError(key, "a string", v)
	}
	return &s, nil
}

func fieldTypeError(key, want string, got any) error {
	return fmt.Errorf("field %q: expected %s, got %s", key, want, yamlKind(got))
}

func yamlKind(v any) string {
	switch v.(type) {
	case []any:
		return "a sequence"
	case map[string]any:
		return "a mapping"
	case map[any]any:
		return "a mapping with non-string keys"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case int, int64, uint64, float64:
		return "a number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
