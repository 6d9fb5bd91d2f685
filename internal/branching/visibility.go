package branching

import (
	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/domain"
)

// ResolveVisible computes the ordered list of visible question IDs for the
// whole form given the current answers. The first question is always
// visible; every later question is visible when all of its conditions hold
// (a question without conditions is unconditionally visible). The result is
// an order-preserving subsequence of the question sequence.
func ResolveVisible(questions []domain.Question, answers map[uuid.UUID]domain.Value) []uuid.UUID {
	if len(questions) == 0 {
		return nil
	}

	visible := make([]uuid.UUID, 0, len(questions))
	visible = append(visible, questions[0].ID)

	for _, q := range questions[1:] {
		if allHold(q.Conditions, answers) {
			visible = append(visible, q.ID)
		}
	}
	return visible
}

func allHold(conditions []domain.Condition, answers map[uuid.UUID]domain.Value) bool {
	for _, cond := range conditions {
		if !Evaluate(cond, answers) {
			return false
		}
	}
	return true
}
