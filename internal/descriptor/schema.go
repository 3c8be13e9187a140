package descriptor

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/qext.schema.json
var schemaFS embed.FS

// ValidationError lists the schema violations of a descriptor.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is not a valid descriptor: %s", e.Path, strings.Join(e.Issues, "; "))
}

// Validate checks the descriptor at path against the embedded schema.
func Validate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read descriptor: %w", err)
	}
	return ValidateBytes(path, data)
}

// ValidateBytes checks descriptor content against the embedded schema.
// path is only used in the returned error.
func ValidateBytes(path string, data []byte) error {
	schemaBytes, err := schemaFS.ReadFile("schemas/qext.schema.json")
	if err != nil {
		return fmt.Errorf("failed to load descriptor schema: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return &ValidationError{Path: path, Issues: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return &ValidationError{Path: path, Issues: issues}
}
