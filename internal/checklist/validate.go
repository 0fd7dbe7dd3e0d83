package checklist

import (
	"flotilla/api/internal/template"
)

// Validation messages, in the wire vocabulary the clients display verbatim.
const (
	MsgRequired      = "Este campo es requerido"
	MsgInvalidNumber = "Debe ser un numero válido"
	MsgNumberMin     = "El valor debe ser mayor a Cero"
	MsgSelectOption  = "Seleccione una opción"
	MsgYesNoInvalid  = "seleccione 'si' o 'no'"
	MsgChoiceInvalid = "Opción no válida"
)

// FieldError names the failing question and the message to surface.
type FieldError struct {
	QuestionID int    `json:"idPregunta"`
	Message    string `json:"message"`
}

// Validate checks the answer state against the per-type rules, walking the
// filtered sections in display order so the first returned error is the first
// offending field on screen. A question with no state entry fails its
// required rule. Validation is all-or-nothing: any error blocks submission.
func Validate(sections []template.Section, st State) []FieldError {
	values := st.Values()
	var errs []FieldError
	for _, section := range sections {
		for _, q := range section.Questions {
			if msg := validateAnswer(q.Type, values[q.ID]); msg != "" {
				errs = append(errs, FieldError{QuestionID: q.ID, Message: msg})
			}
		}
	}
	return errs
}

func validateAnswer(t template.AnswerType, v Value) string {
	switch t {
	case template.TypeNumber:
		if v.IsEmpty() {
			return MsgRequired
		}
		n, ok := v.AsNumber()
		if !ok {
			return MsgInvalidNumber
		}
		if n < 0 {
			return MsgNumberMin
		}
	case template.TypeYesNo:
		if v.IsEmpty() {
			return MsgSelectOption
		}
		if s, ok := v.Str(); !ok || (s != template.AnswerYes && s != template.AnswerNo) {
			return MsgYesNoInvalid
		}
	case template.TypeChoice:
		if v.IsEmpty() {
			return MsgRequired
		}
		s, ok := v.Str()
		if !ok || !validChoice(s) {
			return MsgChoiceInvalid
		}
	case template.TypeText:
		// Optional comment field, anything goes.
	}
	return ""
}

func validChoice(s string) bool {
	for _, opt := range template.ChoiceOptions {
		if s == opt {
			return true
		}
	}
	return false
}
