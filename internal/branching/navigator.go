package branching

import (
	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/domain"
)

// Next returns the index of the first visible question after currentIndex,
// scanning in full-array order and skipping hidden questions. When no later
// visible question exists the index is returned unchanged.
func Next(questions []domain.Question, visibleIDs []uuid.UUID, currentIndex int) int {
	set := idSet(visibleIDs)
	for i := currentIndex + 1; i < len(questions); i++ {
		if set[questions[i].ID] {
			return i
		}
	}
	return currentIndex
}

// Prev returns the index of the nearest visible question before currentIndex,
// or currentIndex unchanged when already at the first visible step.
func Prev(questions []domain.Question, visibleIDs []uuid.UUID, currentIndex int) int {
	set := idSet(visibleIDs)
	for i := currentIndex - 1; i >= 0 && i < len(questions); i-- {
		if set[questions[i].ID] {
			return i
		}
	}
	return currentIndex
}

// IsLastVisibleStep reports whether currentIndex addresses the last member
// of the visible set, i.e. the terminal step after which submission becomes
// enabled.
func IsLastVisibleStep(questions []domain.Question, visibleIDs []uuid.UUID, currentIndex int) bool {
	if len(visibleIDs) == 0 || currentIndex < 0 || currentIndex >= len(questions) {
		return false
	}
	return questions[currentIndex].ID == visibleIDs[len(visibleIDs)-1]
}

// IndexOf maps a question ID back to its index in the full question array,
// or -1 when the ID is not part of the form.
func IndexOf(questions []domain.Question, id uuid.UUID) int {
	for i, q := range questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func idSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
