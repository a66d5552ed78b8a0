package template

import (
	"fmt"
	"strings"
)

// SegmentType distinguishes generated from fixed template content.
type SegmentType string

const (
	// SegmentAI segments carry a prompt and are filled in by the
	// generation service.
	SegmentAI SegmentType = "ai"
	// SegmentStatic segments carry fixed boilerplate content.
	SegmentStatic SegmentType = "static"
)

// ParseSegmentType validates a raw segment type value.
func ParseSegmentType(value string) (SegmentType, error) {
	switch SegmentType(strings.TrimSpace(value)) {
	case SegmentAI:
		return SegmentAI, nil
	case SegmentStatic:
		return SegmentStatic, nil
	default:
		return "", fmt.Errorf("unknown segment type %q", value)
	}
}

// Segment is one ordered section of a document template.
type Segment struct {
	ID      string      `yaml:"id" json:"id"`
	Title   string      `yaml:"title" json:"title"`
	Type    SegmentType `yaml:"type" json:"type"`
	Prompt  string      `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Content string      `yaml:"content,omitempty" json:"content,omitempty"`
}

// Template describes how a document is assembled from segments.
type Template struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Builtin     bool      `yaml:"-" json:"builtin"`
	Segments    []Segment `yaml:"segments" json:"segments"`
}

// Validate reports the first structural problem with the template.
func (t Template) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("template id required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template %s: name required", t.ID)
	}
	if len(t.Segments) == 0 {
		return fmt.Errorf("template %s: at least one segment required", t.ID)
	}
	seen := make(map[string]struct{}, len(t.Segments))
	for i, seg := range t.Segments {
		if strings.TrimSpace(seg.ID) == "" {
			return fmt.Errorf("template %s: segment %d: id required", t.ID, i)
		}
		if _, dup := seen[seg.ID]; dup {
			return fmt.Errorf("template %s: duplicate segment id %q", t.ID, seg.ID)
		}
		seen[seg.ID] = struct{}{}
		if strings.TrimSpace(seg.Title) == "" {
			return fmt.Errorf("template %s: segment %s: title required", t.ID, seg.ID)
		}
		if _, err := ParseSegmentType(string(seg.Type)); err != nil {
			return fmt.Errorf("template %s: segment %s: %w", t.ID, seg.ID, err)
		}
		switch seg.Type {
		case SegmentAI:
			if strings.TrimSpace(seg.Prompt) == "" {
				return fmt.Errorf("template %s: segment %s: ai segment requires a prompt", t.ID, seg.ID)
			}
		case SegmentStatic:
			if strings.TrimSpace(seg.Content) == "" {
				return fmt.Errorf("template %s: segment %s: static segment requires content", t.ID, seg.ID)
			}
		}
	}
	return nil
}

// Segment returns the segment with the given id, if present.
func (t Template) Segment(id string) (Segment, bool) {
	for _, seg := range t.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return Segment{}, false
}
