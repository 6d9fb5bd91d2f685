// Package branching implements the conditional question-visibility engine
// used when a respondent fills out a form: evaluating visibility conditions
// against the current answers, resolving the visible subset of questions,
// and navigating a cursor across that subset.
//
// Every function here is pure. Invalid or unsatisfiable lookups degrade to
// false (conditions) or a no-op (navigation); nothing panics, so a malformed
// form can never crash a fill-out flow.
package branching

import (
	"strings"

	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/domain"
)

// Evaluate reports whether a single condition holds against the current
// answer map. A blank or missing answer for the referenced question never
// satisfies a condition, regardless of operator.
func Evaluate(cond domain.Condition, answers map[uuid.UUID]domain.Value) bool {
	answer, ok := answers[cond.QuestionID]
	if !ok || answer.IsBlank() {
		return false
	}

	switch cond.Operator {
	case domain.OperatorEquals:
		return answer.Text() == cond.Value.Text()
	case domain.OperatorContains:
		if elems, isList := answer.List(); isList {
			want := cond.Value.Text()
			for _, e := range elems {
				if e == want {
					return true
				}
			}
			return false
		}
		return strings.Contains(answer.Text(), cond.Value.Text())
	case domain.OperatorGreaterThan:
		// NaN compares false, closing the gate on non-numeric answers.
		return answer.Float() > cond.Value.Float()
	case domain.OperatorLessThan:
		return answer.Float() < cond.Value.Float()
	default:
		return false
	}
}
