package checklist

import (
	"flotilla/api/internal/template"
)

// Answer is one entry of the answer state: the question's identity, its
// answer type, and the current value.
type Answer struct {
	QuestionID int                 `json:"idPregunta"`
	Type       template.AnswerType `json:"tipo"`
	Value      Value               `json:"respuesta"`
}

// State is the in-memory answer state for a filtered question set, kept as an
// ordered collection rather than a map so display order survives the JSON
// round-trip through drafts and clients.
type State struct {
	Answers []Answer `json:"preguntas"`
}

// Values indexes the state's values by question id.
func (s State) Values() map[int]Value {
	values := make(map[int]Value, len(s.Answers))
	for _, a := range s.Answers {
		values[a.QuestionID] = a.Value
	}
	return values
}

// Equal compares two states structurally, order included.
func (s State) Equal(other State) bool {
	if len(s.Answers) != len(other.Answers) {
		return false
	}
	for i, a := range s.Answers {
		b := other.Answers[i]
		if a.QuestionID != b.QuestionID || a.Type != b.Type || !a.Value.Equal(b.Value) {
			return false
		}
	}
	return true
}

// Placeholder is the "nothing entered yet" value for an answer type: null for
// numeric questions (so required-field validation triggers instead of reading
// an invented zero) and the empty string for everything else.
func Placeholder(t template.AnswerType) Value {
	if t == template.TypeNumber {
		return Value{}
	}
	return StringValue("")
}

// DefaultValue computes the seeded value for a question: a prior value, when
// present and non-empty, is coerced to the type-appropriate shape; otherwise
// the placeholder is used. The empty string counts as "unset" even for
// numeric questions — it must never coerce to zero. A prior that cannot be
// coerced (e.g. a non-numeric string for a numeric question) is kept as-is so
// validation can name the problem instead of silently dropping the entry.
// DefaultValue is idempotent: applying it to its own output changes nothing.
func DefaultValue(t template.AnswerType, prior Value) Value {
	if prior.IsEmpty() {
		return Placeholder(t)
	}
	switch t {
	case template.TypeNumber:
		if n, ok := prior.AsNumber(); ok {
			return NumberValue(n)
		}
		return prior
	case template.TypeYesNo, template.TypeChoice, template.TypeText:
		return StringValue(prior.AsString())
	default:
		return Placeholder(t)
	}
}

// Seed builds the answer state for a filtered section list: exactly one entry
// per filtered question, in section order, each defaulted from the prior
// values (a loaded draft, a saved submission, or nothing). Prior values for
// questions outside the filtered set are dropped, so reseeding after a
// unit-type change cannot leave stale entries behind.
func Seed(sections []template.Section, prior map[int]Value) State {
	var answers []Answer
	for _, section := range sections {
		for _, q := range section.Questions {
			answers = append(answers, Answer{
				QuestionID: q.ID,
				Type:       q.Type,
				Value:      DefaultValue(q.Type, prior[q.ID]),
			})
		}
	}
	return State{Answers: answers}
}

// IsAllDefault reports whether the state is indistinguishable from a freshly
// seeded empty form. Draft saves are skipped in that case so an untouched
// render never overwrites a real draft.
func IsAllDefault(sections []template.Section, st State) bool {
	return st.Equal(Seed(sections, nil))
}
