package template_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"actas/internal/template"
)

func TestBuiltinTemplatesAreValid(t *testing.T) {
	templates, err := template.Builtin()
	if err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}
	if len(templates) != 3 {
		t.Fatalf("Builtin() returned %d templates, want 3", len(templates))
	}
	ids := make(map[string]bool)
	for _, tmpl := range templates {
		if !tmpl.Builtin {
			t.Errorf("template %s not marked builtin", tmpl.ID)
		}
		if err := tmpl.Validate(); err != nil {
			t.Errorf("template %s invalid: %v", tmpl.ID, err)
		}
		ids[tmpl.ID] = true
	}
	for _, want := range []string{"formal-meeting", "project-standup", "client-call"} {
		if !ids[want] {
			t.Errorf("builtin template %s missing", want)
		}
	}
}

func TestValidateRejectsBadSegments(t *testing.T) {
	base := template.Template{
		ID:   "t1",
		Name: "Test",
		Segments: []template.Segment{
			{ID: "a", Title: "A", Type: template.SegmentAI, Prompt: "p"},
		},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*template.Template)
		want   string
	}{
		{"missing id", func(tm *template.Template) { tm.ID = "" }, "id required"},
		{"no segments", func(tm *template.Template) { tm.Segments = nil }, "at least one segment"},
		{"duplicate segment", func(tm *template.Template) {
			tm.Segments = append(tm.Segments, tm.Segments[0])
		}, "duplicate segment"},
		{"ai without prompt", func(tm *template.Template) {
			tm.Segments[0].Prompt = ""
		}, "requires a prompt"},
		{"static without content", func(tm *template.Template) {
			tm.Segments[0].Type = template.SegmentStatic
			tm.Segments[0].Prompt = ""
		}, "requires content"},
		{"unknown type", func(tm *template.Template) {
			tm.Segments[0].Type = "generated"
		}, "unknown segment type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tmpl := base
			tmpl.Segments = append([]template.Segment(nil), base.Segments...)
			tc.mutate(&tmpl)
			err := tmpl.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("custom.yaml", `
id: board-session
name: Board Session
segments:
  - id: notes
    title: Notes
    type: ai
    prompt: Summarize the session.
`)
	write("ignored.txt", "not a template")

	templates, err := template.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(templates) != 1 || templates[0].ID != "board-session" {
		t.Fatalf("LoadDir() = %+v, want one board-session template", templates)
	}
	if templates[0].Builtin {
		t.Fatal("operator template marked builtin")
	}

	write("dup.yaml", `
id: board-session
name: Duplicate
segments:
  - id: notes
    title: Notes
    type: static
    content: x
`)
	if _, err := template.LoadDir(dir); err == nil || !strings.Contains(err.Error(), "defined in both") {
		t.Fatalf("LoadDir() duplicate error = %v", err)
	}
}

func TestLoadDirMissingDirectory(t *testing.T) {
	templates, err := template.LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if templates != nil {
		t.Fatalf("LoadDir() = %+v, want nil", templates)
	}
}
