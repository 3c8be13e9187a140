// Package template renders the embedded chart scaffolding templates.
package template

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"text/template"
)

//go:embed all:templates
var templatesFS embed.FS

// Engine provides template rendering capabilities.
type Engine struct {
	funcMap template.FuncMap
}

// NewEngine creates a new template engine.
func NewEngine() *Engine {
	return &Engine{
		funcMap: template.FuncMap{
			"dasherize": Dasherize,
			"pascalize": Pascalize,
			"title":     Title,
			"upper":     strings.ToUpper,
			"lower":     strings.ToLower,
			"replace":   strings.ReplaceAll,
			"json":      JSONString,
		},
	}
}

// Render renders a template string with the given data.
func (e *Engine) Render(templateStr string, data any) (string, error) {
	tmpl, err := template.New("template").Funcs(e.funcMap).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// RenderTemplate renders an embedded template file with the given data.
func (e *Engine) RenderTemplate(templatePath string, data any) (string, error) {
	content, err := templatesFS.ReadFile("templates/" + templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded template %s: %w", templatePath, err)
	}

	return e.Render(string(content), data)
}

// RenderDir renders every .tmpl file below the embedded directory dir. The
// result maps output paths, relative to dir and without the .tmpl suffix, to
// rendered content.
func (e *Engine) RenderDir(dir string, data any) (map[string]string, error) {
	root := path.Join("templates", dir)
	var names []string
	err := fs.WalkDir(templatesFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".tmpl") {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates in %s: %w", dir, err)
	}
	sort.Strings(names)

	files := make(map[string]string, len(names))
	for _, name := range names {
		rel := strings.TrimPrefix(name, root+"/")
		out, err := e.RenderTemplate(path.Join(dir, rel), data)
		if err != nil {
			return nil, err
		}
		files[strings.TrimSuffix(rel, ".tmpl")] = out
	}
	return files, nil
}

// JSONString encodes v as a JSON literal. Strings come out quoted, which is
// also a valid JavaScript string literal.
func JSONString(v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Helper functions for string transformations

// Dasherize converts a string to dash-case (kebab-case).
func Dasherize(s string) string {
	return strings.ToLower(strings.Join(splitWords(s), "-"))
}

// Pascalize converts a string to PascalCase.
func Pascalize(s string) string {
	words := splitWords(s)
	for i := range words {
		words[i] = capitalize(strings.ToLower(words[i]))
	}
	return strings.Join(words, "")
}

// Title converts a name to space separated words with leading capitals.
func Title(s string) string {
	words := splitWords(s)
	for i := range words {
		words[i] = capitalize(words[i])
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// splitWords splits a string into words for transformation.
func splitWords(s string) []string {
	// Handle kebab-case and snake_case
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	// Handle PascalCase and camelCase
	s = camelBoundary.ReplaceAllString(s, "${1} ${2}")

	return strings.Fields(s)
}
