// Package validator checks form definitions at authoring time, before they
// reach storage. Shape problems are caught by a JSON Schema; the reference
// rules a schema cannot express (conditions must point at an earlier
// question in the same form) are checked structurally afterwards. Forms
// that would contain permanently unsatisfiable branches are rejected here
// rather than left to fail silently during fill-out.
package validator

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemasFS embed.FS

// ValidationError represents a single validation error.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationResult holds the result of form validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validator validates form definitions.
type Validator struct {
	formSchema *jsonschema.Schema
}

// New creates a new Validator with the embedded form schema.
func New() (*Validator, error) {
	schemaData, err := schemasFS.ReadFile("schemas/FormDefinition.schema.json")
	if err != nil {
		return nil, fmt.Errorf("read form schema: %w", err)
	}

	var schemaDoc interface{}
	if err := json.Unmarshal(schemaData, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("form.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	schema, err := c.Compile("form.json")
	if err != nil {
		return nil, fmt.Errorf("compile form schema: %w", err)
	}

	return &Validator{formSchema: schema}, nil
}

// formShape is the slice of the payload the structural checks care about.
type formShape struct {
	Questions []struct {
		ID         string `json:"id"`
		Conditions []struct {
			QuestionID string `json:"question_id"`
			Operator   string `json:"operator"`
		} `json:"conditions"`
	} `json:"questions"`
}

// ValidateForm validates a form-definition payload: JSON Schema first, then
// the condition-reference rules. A condition may only reference a question
// that appears earlier in the sequence; self and forward references would
// make the gated question permanently unsatisfiable.
func (v *Validator) ValidateForm(formJSON []byte) ValidationResult {
	var doc interface{}
	if err := json.Unmarshal(formJSON, &doc); err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Path:    "/",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			}},
		}
	}

	if err := v.formSchema.Validate(doc); err != nil {
		var errors []ValidationError
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			errors = extractErrors(ve)
		} else {
			errors = []ValidationError{{Path: "/", Message: err.Error()}}
		}
		return ValidationResult{Valid: false, Errors: errors}
	}

	var shape formShape
	if err := json.Unmarshal(formJSON, &shape); err != nil {
		return ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Path: "/", Message: err.Error()}},
		}
	}

	errors := checkReferences(shape)
	if len(errors) > 0 {
		return ValidationResult{Valid: false, Errors: errors}
	}
	return ValidationResult{Valid: true}
}

func checkReferences(shape formShape) []ValidationError {
	var errors []ValidationError

	position := make(map[string]int, len(shape.Questions))
	for i, q := range shape.Questions {
		if _, err := uuid.Parse(q.ID); err != nil {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("/questions/%d/id", i),
				Message: fmt.Sprintf("%q is not a valid UUID", q.ID),
			})
			continue
		}
		if prev, dup := position[q.ID]; dup {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("/questions/%d/id", i),
				Message: fmt.Sprintf("duplicate question ID (also at index %d)", prev),
			})
			continue
		}
		position[q.ID] = i
	}

	for i, q := range shape.Questions {
		for j, cond := range q.Conditions {
			path := fmt.Sprintf("/questions/%d/conditions/%d/question_id", i, j)
			ref, ok := position[cond.QuestionID]
			if !ok {
				errors = append(errors, ValidationError{
					Path:    path,
					Message: fmt.Sprintf("condition references unknown question %q", cond.QuestionID),
				})
				continue
			}
			if ref == i {
				errors = append(errors, ValidationError{
					Path:    path,
					Message: "condition references its own question",
				})
				continue
			}
			if ref > i {
				errors = append(errors, ValidationError{
					Path:    path,
					Message: fmt.Sprintf("condition references a later question (index %d); only earlier answers can gate visibility", ref),
				})
			}
		}
	}

	return errors
}

func extractErrors(ve *jsonschema.ValidationError) []ValidationError {
	var errors []ValidationError

	// Recursively extract errors from causes
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			errors = append(errors, extractErrors(cause)...)
		}
	} else {
		// Leaf error
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		errors = append(errors, ValidationError{
			Path:    path,
			Message: ve.Error(),
		})
	}

	return errors
}
