package template

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var defaultFiles embed.FS

// Builtin returns the templates shipped with the binary, sorted by name.
func Builtin() ([]Template, error) {
	entries, err := defaultFiles.ReadDir("defaults")
	if err != nil {
		return nil, fmt.Errorf("read builtin templates: %w", err)
	}
	templates := make([]Template, 0, len(entries))
	for _, entry := range entries {
		data, err := defaultFiles.ReadFile("defaults/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read builtin template %s: %w", entry.Name(), err)
		}
		tmpl, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("builtin template %s: %w", entry.Name(), err)
		}
		tmpl.Builtin = true
		templates = append(templates, tmpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates, nil
}

// Parse decodes and validates a single YAML template document.
func Parse(data []byte) (Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return Template{}, fmt.Errorf("parse template: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return Template{}, err
	}
	return tmpl, nil
}

// LoadFile reads one template from disk.
func LoadFile(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template %s: %w", path, err)
	}
	tmpl, err := Parse(data)
	if err != nil {
		return Template{}, fmt.Errorf("template %s: %w", path, err)
	}
	return tmpl, nil
}

// LoadDir reads every .yaml/.yml file in dir as an operator-supplied
// template. A missing directory yields no templates and no error. Duplicate
// ids across files are rejected.
func LoadDir(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read template dir %s: %w", dir, err)
	}

	var templates []Template
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		tmpl, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[tmpl.ID]; dup {
			return nil, fmt.Errorf("template id %q defined in both %s and %s", tmpl.ID, prev, entry.Name())
		}
		seen[tmpl.ID] = entry.Name()
		templates = append(templates, tmpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates, nil
}
