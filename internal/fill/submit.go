package fill

import (
	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/branching"
	"github.com/protomforms/backend/internal/domain"
)

// SubmissionIssues lists everything wrong with a submitted answer map.
type SubmissionIssues struct {
	// UnknownQuestions are answer keys that match no question in the form.
	UnknownQuestions []uuid.UUID
	// MissingRequired are visible required questions left unanswered.
	MissingRequired []uuid.UUID
}

// MissingRequired returns the visible required questions whose answer is
// absent, an empty string, or an empty list. Hidden questions are never
// required: a respondent cannot be obliged to answer a question they were
// never shown.
func MissingRequired(questions []domain.Question, answers map[uuid.UUID]domain.Value, visibleIDs []uuid.UUID) []uuid.UUID {
	visible := make(map[uuid.UUID]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		visible[id] = true
	}

	var missing []uuid.UUID
	for _, q := range questions {
		if !q.Required || !visible[q.ID] {
			continue
		}
		if answerMissing(answers[q.ID]) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

func answerMissing(v domain.Value) bool {
	if elems, isList := v.List(); isList {
		return len(elems) == 0
	}
	return v.IsBlank()
}

// ValidateSubmission checks a full answer map against a form's questions:
// every answered question must exist, and every visible required question
// must be answered. Visibility is resolved from the submitted answers
// themselves, so a question hidden by the respondent's own branching path
// does not count against them. Returns nil when the submission is
// acceptable.
func ValidateSubmission(questions []domain.Question, answers map[uuid.UUID]domain.Value) *SubmissionIssues {
	known := make(map[uuid.UUID]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	issues := &SubmissionIssues{}
	for id := range answers {
		if !known[id] {
			issues.UnknownQuestions = append(issues.UnknownQuestions, id)
		}
	}

	visibleIDs := branching.ResolveVisible(questions, answers)
	issues.MissingRequired = MissingRequired(questions, answers, visibleIDs)

	if len(issues.UnknownQuestions) == 0 && len(issues.MissingRequired) == 0 {
		return nil
	}
	return issues
}
