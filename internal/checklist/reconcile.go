package checklist

import (
	"flotilla/api/internal/template"
)

// PayloadQuestion is a question as persisted by the system of record: the
// catalog's text, type, and applicability tag attached to the validated
// answer.
type PayloadQuestion struct {
	ID        int                 `json:"idPregunta"`
	Text      string              `json:"pregunta"`
	Value     Value               `json:"respuesta"`
	Type      template.AnswerType `json:"tipo"`
	AppliesTo string              `json:"aplicaA"`
}

type PayloadSection struct {
	Name      string            `json:"nombre"`
	Questions []PayloadQuestion `json:"preguntas"`
}

// Payload is the full nested submission shape. It mirrors the filtered
// sections exactly: questions filtered out for this unit type are absent, not
// present with a null answer.
type Payload struct {
	Sections []PayloadSection `json:"secciones"`
}

// Values indexes a stored payload's answers by question id, for seeding the
// edit workflow.
func (p Payload) Values() map[int]Value {
	values := make(map[int]Value)
	for _, section := range p.Sections {
		for _, q := range section.Questions {
			values[q.ID] = q.Value
		}
	}
	return values
}

// Reconcile merges the validated answer state back into the filtered template
// shape. Text, type, and applicability come from the catalog, never from the
// answer state, which only carries id, type, and value. Should an entry be
// missing for a question, the type's placeholder is used rather than failing
// the whole submission.
func Reconcile(sections []template.Section, st State) Payload {
	values := st.Values()
	payload := Payload{Sections: make([]PayloadSection, 0, len(sections))}
	for _, section := range sections {
		out := PayloadSection{
			Name:      section.Name,
			Questions: make([]PayloadQuestion, 0, len(section.Questions)),
		}
		for _, q := range section.Questions {
			value, ok := values[q.ID]
			if !ok {
				value = Placeholder(q.Type)
			}
			out.Questions = append(out.Questions, PayloadQuestion{
				ID:        q.ID,
				Text:      q.Text,
				Value:     value,
				Type:      q.Type,
				AppliesTo: q.Applicability(),
			})
		}
		payload.Sections = append(payload.Sections, out)
	}
	return payload
}
