package template

import (
	"strings"
	"testing"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	tpl, err := Load("")
	if err != nil {
		t.Fatalf("Load embedded catalog failed: %v", err)
	}
	if len(tpl.Sections) == 0 {
		t.Fatal("expected sections in embedded catalog")
	}

	// Every question must be findable by id.
	for _, section := range tpl.Sections {
		for _, q := range section.Questions {
			found, ok := tpl.Question(q.ID)
			if !ok {
				t.Errorf("question %d not found via lookup", q.ID)
			}
			if found.Text != q.Text {
				t.Errorf("question %d: lookup returned %q, want %q", q.ID, found.Text, q.Text)
			}
		}
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := []struct {
		name    string
		catalog string
		wantErr string
	}{
		{
			name:    "not json",
			catalog: `{preguntas}`,
			wantErr: "decode catalog",
		},
		{
			name:    "no sections",
			catalog: `{"preguntas": []}`,
			wantErr: "no sections",
		},
		{
			name:    "empty section name",
			catalog: `{"preguntas": [{"nombre": "  ", "preguntas": [{"idPregunta": 1, "pregunta": "x", "tipo": "texto"}]}]}`,
			wantErr: "empty name",
		},
		{
			name:    "section without questions",
			catalog: `{"preguntas": [{"nombre": "Motor", "preguntas": []}]}`,
			wantErr: "no questions",
		},
		{
			name:    "duplicate question id",
			catalog: `{"preguntas": [{"nombre": "Motor", "preguntas": [{"idPregunta": 1, "pregunta": "a", "tipo": "texto"}, {"idPregunta": 1, "pregunta": "b", "tipo": "texto"}]}]}`,
			wantErr: "duplicate question id 1",
		},
		{
			name:    "unknown answer type",
			catalog: `{"preguntas": [{"nombre": "Motor", "preguntas": [{"idPregunta": 1, "pregunta": "a", "tipo": "rango"}]}]}`,
			wantErr: "unknown type",
		},
		{
			name:    "empty question text",
			catalog: `{"preguntas": [{"nombre": "Motor", "preguntas": [{"idPregunta": 1, "pregunta": "", "tipo": "texto"}]}]}`,
			wantErr: "empty text",
		},
		{
			name:    "non-positive id",
			catalog: `{"preguntas": [{"nombre": "Motor", "preguntas": [{"idPregunta": 0, "pregunta": "a", "tipo": "texto"}]}]}`,
			wantErr: "invalid id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.catalog))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestApplicabilityDefaultsToTodos(t *testing.T) {
	q := Question{ID: 1, Text: "x", Type: TypeText}
	if got := q.Applicability(); got != AppliesAll {
		t.Errorf("expected %q for missing tag, got %q", AppliesAll, got)
	}

	q.AppliesTo = "  Tractocamion "
	if got := q.Applicability(); got != "tractocamion" {
		t.Errorf("expected normalized tag, got %q", got)
	}
}
