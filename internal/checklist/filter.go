// Package checklist implements the checklist-filling core: deriving the
// question set applicable to a unit, seeding and reseeding answer state,
// validating answers, and reconciling them into the stored payload shape.
package checklist

import (
	"strings"

	"flotilla/api/internal/template"
)

// Filter restricts the catalog to the questions applicable to the given unit
// type: a question applies when its tag is "todos" (or absent) or matches the
// unit type case-insensitively. Sections left without questions are dropped.
// An empty or unresolved unit type yields no sections at all, which blocks
// submission downstream rather than guessing.
//
// Filter is a pure function of its inputs: it is recomputed whenever the unit
// type becomes known or changes, so two calls with the same catalog and unit
// type must produce structurally equal output.
func Filter(tpl template.Template, unitType string) []template.Section {
	unit := strings.ToLower(strings.TrimSpace(unitType))
	if unit == "" {
		return nil
	}

	var sections []template.Section
	for _, section := range tpl.Sections {
		var questions []template.Question
		for _, q := range section.Questions {
			tag := q.Applicability()
			if tag == template.AppliesAll || tag == unit {
				questions = append(questions, q)
			}
		}
		if len(questions) == 0 {
			continue
		}
		sections = append(sections, template.Section{Name: section.Name, Questions: questions})
	}
	return sections
}
