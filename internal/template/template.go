// Package template holds the inspection question catalog. The catalog is
// loaded once at boot, validated, and treated as immutable: every assignment
// of the same schema version sees the same sections and questions.
package template

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// AnswerType tags how a question is answered and which value shapes are legal.
type AnswerType string

const (
	TypeNumber AnswerType = "numero"
	TypeYesNo  AnswerType = "si_no"
	TypeChoice AnswerType = "opciones"
	TypeText   AnswerType = "texto"
)

// AppliesAll marks a question as applicable to every unit type.
const AppliesAll = "todos"

// Answer tokens for the two enumerated question types. These are wire
// literals shared with the clients and the stored payloads.
const (
	AnswerYes = "si"
	AnswerNo  = "no"
)

var ChoiceOptions = []string{"bueno", "regular", "malo"}

type Question struct {
	ID        int        `json:"idPregunta"`
	Text      string     `json:"pregunta"`
	Type      AnswerType `json:"tipo"`
	AppliesTo string     `json:"aplicaA,omitempty"`
}

// Applicability normalizes the aplicaA tag: absent means "todos".
func (q Question) Applicability() string {
	tag := strings.ToLower(strings.TrimSpace(q.AppliesTo))
	if tag == "" {
		return AppliesAll
	}
	return tag
}

type Section struct {
	Name      string     `json:"nombre"`
	Questions []Question `json:"preguntas"`
}

type Template struct {
	Sections []Section `json:"preguntas"`
}

//go:embed catalog.json
var embedded embed.FS

// Load reads and validates the catalog. With an empty path the embedded
// default catalog is used. Callers are expected to fail fast on error: a
// broken catalog makes the whole checklist workflow unusable.
func Load(path string) (Template, error) {
	var raw []byte
	var err error
	if path == "" {
		raw, err = embedded.ReadFile("catalog.json")
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return Template{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a catalog document.
func Parse(raw []byte) (Template, error) {
	var tpl Template
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return Template{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return Template{}, fmt.Errorf("invalid catalog: %w", err)
	}
	return tpl, nil
}

// Validate enforces the catalog schema: at least one section, every section
// named and non-empty, question ids positive and unique across the whole
// catalog, known answer types, non-empty question text.
func (t Template) Validate() error {
	if len(t.Sections) == 0 {
		return fmt.Errorf("catalog has no sections")
	}
	seen := make(map[int]string)
	for _, section := range t.Sections {
		if strings.TrimSpace(section.Name) == "" {
			return fmt.Errorf("section with empty name")
		}
		if len(section.Questions) == 0 {
			return fmt.Errorf("section %q has no questions", section.Name)
		}
		for _, q := range section.Questions {
			if q.ID <= 0 {
				return fmt.Errorf("section %q: question %q has invalid id %d", section.Name, q.Text, q.ID)
			}
			if prior, dup := seen[q.ID]; dup {
				return fmt.Errorf("duplicate question id %d (sections %q and %q)", q.ID, prior, section.Name)
			}
			seen[q.ID] = section.Name
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("section %q: question %d has empty text", section.Name, q.ID)
			}
			switch q.Type {
			case TypeNumber, TypeYesNo, TypeChoice, TypeText:
			default:
				return fmt.Errorf("section %q: question %d has unknown type %q", section.Name, q.ID, q.Type)
			}
		}
	}
	return nil
}

// Question finds a question by id across all sections.
func (t Template) Question(id int) (Question, bool) {
	for _, section := range t.Sections {
		for _, q := range section.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return Question{}, false
}
