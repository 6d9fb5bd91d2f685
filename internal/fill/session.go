// Package fill drives a single respondent's walk through a form. It owns
// the responsibilities the branching engine leaves to its caller: keeping
// the visible set fresh after every answer edit, re-seating a cursor that
// an edit stranded on a now-hidden question, and checking required-field
// completeness before submission.
package fill

import (
	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/branching"
	"github.com/protomforms/backend/internal/domain"
)

// Session holds the state of one fill-out: the form's questions (immutable
// for the session's lifetime), the live answer map, and the cursor into the
// full question array. The visible set is derived state, recomputed in full
// on every answer change.
type Session struct {
	questions []domain.Question
	answers   map[uuid.UUID]domain.Value
	visible   []uuid.UUID
	cursor    int
}

// NewSession starts a fill-out at the first question.
func NewSession(questions []domain.Question) *Session {
	s := &Session{
		questions: questions,
		answers:   make(map[uuid.UUID]domain.Value),
	}
	s.visible = branching.ResolveVisible(questions, s.answers)
	return s
}

// SetAnswer records an answer and recomputes the visible set. When the edit
// hides the question currently on screen, the cursor snaps to the nearest
// earlier visible step rather than pointing at a question the respondent can
// no longer see.
func (s *Session) SetAnswer(questionID uuid.UUID, value domain.Value) {
	if value.IsAbsent() {
		delete(s.answers, questionID)
	} else {
		s.answers[questionID] = value
	}
	s.visible = branching.ResolveVisible(s.questions, s.answers)
	s.clampCursor()
}

func (s *Session) clampCursor() {
	set := make(map[uuid.UUID]bool, len(s.visible))
	for _, id := range s.visible {
		set[id] = true
	}
	for i := s.cursor; i > 0; i-- {
		if i < len(s.questions) && set[s.questions[i].ID] {
			s.cursor = i
			return
		}
	}
	s.cursor = 0
}

// Next advances the cursor to the following visible question. At the
// terminal step it is a no-op.
func (s *Session) Next() {
	s.cursor = branching.Next(s.questions, s.visible, s.cursor)
}

// Prev moves the cursor back to the preceding visible question. At the
// first step it is a no-op.
func (s *Session) Prev() {
	s.cursor = branching.Prev(s.questions, s.visible, s.cursor)
}

// Current returns the question under the cursor.
func (s *Session) Current() (domain.Question, bool) {
	if s.cursor < 0 || s.cursor >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.cursor], true
}

// CursorIndex returns the cursor's position in the full question array.
func (s *Session) CursorIndex() int { return s.cursor }

// VisibleIDs returns the current visible set in sequence order.
func (s *Session) VisibleIDs() []uuid.UUID { return s.visible }

// CanSubmit reports whether the cursor stands on the terminal visible step.
// Required-field completeness is checked separately at submission.
func (s *Session) CanSubmit() bool {
	return branching.IsLastVisibleStep(s.questions, s.visible, s.cursor)
}

// Answers returns a copy of the live answer map.
func (s *Session) Answers() map[uuid.UUID]domain.Value {
	out := make(map[uuid.UUID]domain.Value, len(s.answers))
	for id, v := range s.answers {
		out[id] = v
	}
	return out
}
