package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType represents the type of question.
type QuestionType string

const (
	QuestionTypeText           QuestionType = "TEXT"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeCheckbox       QuestionType = "CHECKBOX"
	QuestionTypeRating         QuestionType = "RATING"
	QuestionTypeDate           QuestionType = "DATE"
	QuestionTypeRanking        QuestionType = "RANKING"
	QuestionTypeLikert         QuestionType = "LIKERT"
	QuestionTypeFileUpload     QuestionType = "FILE_UPLOAD"
	QuestionTypeNPS            QuestionType = "NPS"
	QuestionTypeBranching      QuestionType = "BRANCHING"
)

// FormStatus represents the lifecycle state of a form.
type FormStatus string

const (
	FormStatusDraft     FormStatus = "DRAFT"
	FormStatusPublished FormStatus = "PUBLISHED"
	FormStatusClosed    FormStatus = "CLOSED"
)

// Operator is a comparison applied by a visibility condition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorContains    Operator = "contains"
	OperatorGreaterThan Operator = "greaterThan"
	OperatorLessThan    Operator = "lessThan"
)

// Form represents a survey or quiz with an ordered list of questions.
type Form struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Slug            string     `json:"slug"`
	Status          FormStatus `json:"status"`
	ThankYouMessage string     `json:"thank_you_message,omitempty"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Question represents a single question in a form. Position is the
// question's index in the form's ordered sequence; visibility conditions
// may only reference questions at earlier positions.
type Question struct {
	ID         uuid.UUID    `json:"id"`
	FormID     uuid.UUID    `json:"form_id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Required   bool         `json:"required"`
	Options    []string     `json:"options,omitempty"`
	Conditions []Condition  `json:"conditions,omitempty"`
	Position   int          `json:"position"`
}

// Condition gates a question's visibility on a prior question's answer.
// A question with conditions is visible only if every condition holds.
type Condition struct {
	QuestionID uuid.UUID `json:"question_id"`
	Operator   Operator  `json:"operator"`
	Value      Value     `json:"value"`
}

// Response represents one completed fill-out of a form.
type Response struct {
	ID                uuid.UUID           `json:"id"`
	FormID            uuid.UUID           `json:"form_id"`
	ProgressiveNumber int                 `json:"progressive_number"`
	Answers           map[uuid.UUID]Value `json:"answers"`
	SubmittedAt       time.Time           `json:"submitted_at"`
}
