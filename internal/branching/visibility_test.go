package branching

import (
	"testing"

	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/domain"
)

// branchedForm builds the three-question form used throughout: q1 is free,
// q2 is shown only when q1 equals "yes", q3 is unconditional.
func branchedForm() (questions []domain.Question, q1, q2, q3 uuid.UUID) {
	q1, q2, q3 = uuid.New(), uuid.New(), uuid.New()
	questions = []domain.Question{
		{ID: q1, Text: "Do you own a car?", Type: domain.QuestionTypeMultipleChoice, Position: 0},
		{ID: q2, Text: "Which brand?", Type: domain.QuestionTypeText, Position: 1, Conditions: []domain.Condition{
			{QuestionID: q1, Operator: domain.OperatorEquals, Value: domain.StringValue("yes")},
		}},
		{ID: q3, Text: "Any comments?", Type: domain.QuestionTypeText, Position: 2},
	}
	return questions, q1, q2, q3
}

func equalIDs(got, want []uuid.UUID) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestResolveVisible(t *testing.T) {
	questions, q1, q2, q3 := branchedForm()

	tests := []struct {
		name    string
		answers map[uuid.UUID]domain.Value
		want    []uuid.UUID
	}{
		{
			name:    "no answers hides conditional question",
			answers: map[uuid.UUID]domain.Value{},
			want:    []uuid.UUID{q1, q3},
		},
		{
			name:    "satisfied condition reveals question",
			answers: map[uuid.UUID]domain.Value{q1: domain.StringValue("yes")},
			want:    []uuid.UUID{q1, q2, q3},
		},
		{
			name:    "unsatisfied condition hides question",
			answers: map[uuid.UUID]domain.Value{q1: domain.StringValue("no")},
			want:    []uuid.UUID{q1, q3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveVisible(questions, tt.answers)
			if !equalIDs(got, tt.want) {
				t.Errorf("ResolveVisible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveVisibleFirstQuestionAlwaysVisible(t *testing.T) {
	questions, q1, _, _ := branchedForm()

	// Even a conditioned first question is shown: there is nothing to
	// branch from yet.
	questions[0].Conditions = []domain.Condition{
		{QuestionID: q1, Operator: domain.OperatorEquals, Value: domain.StringValue("never")},
	}

	got := ResolveVisible(questions, map[uuid.UUID]domain.Value{})
	if len(got) == 0 || got[0] != q1 {
		t.Fatalf("ResolveVisible() = %v, want first element %v", got, q1)
	}
}

func TestResolveVisibleAndSemantics(t *testing.T) {
	q1, q2, q3 := uuid.New(), uuid.New(), uuid.New()
	questions := []domain.Question{
		{ID: q1, Position: 0},
		{ID: q2, Position: 1},
		{ID: q3, Position: 2, Conditions: []domain.Condition{
			{QuestionID: q1, Operator: domain.OperatorEquals, Value: domain.StringValue("a")},
			{QuestionID: q2, Operator: domain.OperatorGreaterThan, Value: domain.NumberValue(10)},
		}},
	}

	tests := []struct {
		name    string
		answers map[uuid.UUID]domain.Value
		visible bool
	}{
		{"both hold", map[uuid.UUID]domain.Value{q1: domain.StringValue("a"), q2: domain.NumberValue(11)}, true},
		{"first fails", map[uuid.UUID]domain.Value{q1: domain.StringValue("b"), q2: domain.NumberValue(11)}, false},
		{"second fails", map[uuid.UUID]domain.Value{q1: domain.StringValue("a"), q2: domain.NumberValue(9)}, false},
		{"both fail", map[uuid.UUID]domain.Value{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveVisible(questions, tt.answers)
			has := false
			for _, id := range got {
				if id == q3 {
					has = true
				}
			}
			if has != tt.visible {
				t.Errorf("q3 visible = %v, want %v (set %v)", has, tt.visible, got)
			}
		})
	}
}

func TestResolveVisibleIdempotent(t *testing.T) {
	questions, q1, _, _ := branchedForm()
	answers := map[uuid.UUID]domain.Value{q1: domain.StringValue("yes")}

	first := ResolveVisible(questions, answers)
	second := ResolveVisible(questions, answers)
	if !equalIDs(first, second) {
		t.Errorf("ResolveVisible() not idempotent: %v then %v", first, second)
	}
}

func TestResolveVisibleEmptyForm(t *testing.T) {
	if got := ResolveVisible(nil, map[uuid.UUID]domain.Value{}); got != nil {
		t.Errorf("ResolveVisible(nil) = %v, want nil", got)
	}
}

func TestResolveVisibleForwardReferenceStaysHidden(t *testing.T) {
	q1, q2, q3 := uuid.New(), uuid.New(), uuid.New()
	// q2 references the later q3: permanently unsatisfiable, but must not
	// break resolution of the rest of the form.
	questions := []domain.Question{
		{ID: q1, Position: 0},
		{ID: q2, Position: 1, Conditions: []domain.Condition{
			{QuestionID: q3, Operator: domain.OperatorEquals, Value: domain.StringValue("x")},
		}},
		{ID: q3, Position: 2},
	}

	got := ResolveVisible(questions, map[uuid.UUID]domain.Value{q1: domain.StringValue("anything")})
	if !equalIDs(got, []uuid.UUID{q1, q3}) {
		t.Errorf("ResolveVisible() = %v, want [q1 q3]", got)
	}
}
