package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/branching"
	"github.com/protomforms/backend/internal/domain"
	"github.com/protomforms/backend/internal/export"
	"github.com/protomforms/backend/internal/fill"
	"github.com/protomforms/backend/internal/repository"
	"github.com/protomforms/backend/internal/validator"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	repo      repository.Repository
	validator *validator.Validator
}

// NewHandler creates a new Handler.
func NewHandler(repo repository.Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, validator: val}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Forms
	mux.HandleFunc("GET /forms", h.ListForms)
	mux.HandleFunc("POST /forms", h.CreateForm)
	mux.HandleFunc("GET /forms/{formId}", h.GetForm)
	mux.HandleFunc("DELETE /forms/{formId}", h.DeleteForm)
	mux.HandleFunc("POST /forms/{formId}/publish", h.PublishForm)
	mux.HandleFunc("POST /forms/{formId}/close", h.CloseForm)
	mux.HandleFunc("GET /forms/by-slug/{slug}", h.GetFormBySlug)

	// Fill-out
	mux.HandleFunc("POST /forms/{formId}/visibility", h.ResolveVisibility)

	// Responses
	mux.HandleFunc("POST /forms/{formId}/responses", h.SubmitResponse)
	mux.HandleFunc("GET /forms/{formId}/responses", h.ListResponses)

	// Export
	mux.HandleFunc("GET /forms/{formId}/export", h.ExportResponses)
}

// Error response helpers

type errorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err, message string) {
	writeJSON(w, status, errorResponse{Error: err, Message: message})
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// Forms

type questionPayload struct {
	ID         uuid.UUID           `json:"id"`
	Text       string              `json:"text"`
	Type       domain.QuestionType `json:"type"`
	Required   bool                `json:"required"`
	Options    []string            `json:"options"`
	Conditions []domain.Condition  `json:"conditions"`
}

type createFormRequest struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Slug            string            `json:"slug"`
	ThankYouMessage string            `json:"thank_you_message"`
	Questions       []questionPayload `json:"questions"`
}

type createFormResponse struct {
	FormID uuid.UUID `json:"form_id"`
	Slug   string    `json:"slug"`
}

func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Failed to read request body")
		return
	}

	result := h.validator.ValidateForm(body)
	if !result.Valid {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_form",
			Message: "Form definition failed validation",
			Details: result.Errors,
		})
		return
	}

	var req createFormRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Title)
	}

	now := time.Now().UTC()
	form := &domain.Form{
		ID:              uuid.New(),
		Title:           req.Title,
		Description:     req.Description,
		Slug:            slug,
		Status:          domain.FormStatusDraft,
		ThankYouMessage: req.ThankYouMessage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i, qp := range req.Questions {
		form.Questions = append(form.Questions, domain.Question{
			ID:         qp.ID,
			FormID:     form.ID,
			Text:       qp.Text,
			Type:       qp.Type,
			Required:   qp.Required,
			Options:    qp.Options,
			Conditions: qp.Conditions,
			Position:   i,
		})
	}

	err = h.repo.WithTx(r.Context(), func(txRepo repository.Repository) error {
		if _, err := txRepo.GetFormBySlug(r.Context(), slug); err == nil {
			return domain.ErrConflict
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return txRepo.CreateForm(r.Context(), form)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeError(w, http.StatusConflict, "slug_taken", fmt.Sprintf("A form with slug %q already exists", slug))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create form")
		return
	}

	writeJSON(w, http.StatusCreated, createFormResponse{FormID: form.ID, Slug: form.Slug})
}

func slugify(title string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type listFormsResponse struct {
	Forms []*domain.Form `json:"forms"`
}

func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.repo.ListForms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list forms")
		return
	}
	if forms == nil {
		forms = []*domain.Form{}
	}
	writeJSON(w, http.StatusOK, listFormsResponse{Forms: forms})
}

func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	formID, err := parseUUID(r.PathValue("formId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid form ID")
		return
	}

	form, err := h.repo.GetForm(r.Context(), formID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Form not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get form")
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *Handler) GetFormBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	form, err := h.repo.GetFormBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Form not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get form")
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *Handler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	formID, err := parseUUID(r.PathValue("formId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid form ID")
		return
	}

	if err := h.repo.DeleteForm(r.Context(), formID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Form not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete form")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PublishForm(w http.ResponseWriter, r *http.Request) {
	h.setFormStatus(w, r, domain.FormStatusPublished)
}

func (h *Handler) CloseForm(w http.ResponseWriter, r *http.Request) {
	h.setFormStatus(w, r, domain.FormStatusClosed)
}

func (h *Handler) setFormStatus(w http.ResponseWriter, r *http.Request, status domain.FormStatus) {
	formID, err := parseUUID(r.PathValue("formId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid form ID")
		return
	}

	if err := h.repo.UpdateFormStatus(r.Context(), formID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Form not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update form status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// Fill-out

type visibilityRequest struct {
	Answers      map[uuid.UUID]domain.Value `json:"answers"`
	CurrentIndex int                        `json:"current_index"`
}

type visibilityResponse struct {
	VisibleQuestionIDs []uuid.UUID `json:"visible_question_ids"`
	NextIndex          int         `json:"next_index"`
	PrevIndex          int         `json:"prev_index"`
	IsLastStep         bool        `json:"is_last_step"`
}

// ResolveVisibility mirrors the client-side branching engine on the server:
// given the live answer map and cursor position it returns the visible set
// and the navigation decisions for that position.
func (h *Handler) ResolveVisibility(w http.ResponseWriter, r *http.Request) {
	formID, err := parseUUID(r.PathValue("formId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid form ID")
		return
	}

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	form, err := h.repo.GetForm(r.Context(), formID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Form not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get form")
		return
	}

	visible := branching.ResolveVisible(form.Questions, req.Answers)
	writeJSON(w, http.StatusOK, visibilityResponse{
		VisibleQuestionIDs: visible,
		NextIndex:          branching.Next(form.Questions, visible, req.CurrentIndex),
		PrevIndex:          branching.Prev(form.Questions, visible, req.CurrentIndex),
		IsLastStep:         branching.IsLastVisibleStep(form.Questions, visible, req.CurrentIndex),
	})
}

// Responses

type submitResponseRequest struct {
	Answers map[uuid.UUID]domain.Value `json:"answers"`
}

type submitResponseResponse struct {
	ResponseID        uuid.UUID `json:"response_id"`
	ProgressiveNumber int       `json:"progressive_number"`
	ThankYouMessage   string    `json:"thank_you_message,omitempty"`
}

func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	formID, err := parseUUID(r.PathValue("formId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid form ID")
		return
	}

	var req submitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Answers == nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "Missing answers")
		return
	}

	form, err := h.repo.GetForm(r.Context(), formID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Form not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get form")
		return
	}

	if form.Status != domain.FormStatusPublished {
		writeError(w, http.StatusForbidden, "form_not_open", "Form is not accepting responses")
		return
	}

	if issues := fill.ValidateSubmission(form.Questions, req.Answers); issues != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_submission",
			Message: "Submission failed validation",
			Details: submissionIssueDetails(form, issues),
		})
		return
	}

	response := &domain.Response{
		ID:          uuid.New(),
		FormID:      formID,
		Answers:     req.Answers,
		SubmittedAt: time.Now().UTC(),
	}
	err = h.repo.WithTx(r.Context(), func(txRepo repository.Repository) error {
		return txRepo.CreateResponse(r.Context(), response)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to save response")
		return
	}

	writeJSON(w, http.StatusCreated, submitResponseResponse{
		ResponseID:        response.ID,
		ProgressiveNumber: response.ProgressiveNumber,
		ThankYouMessage:   form.ThankYouMessage,
	})
}

type submissionIssues struct {
	MissingQuestions []string    `json:"missing_questions,omitempty"`
	UnknownQuestions []uuid.UUID `json:"unknown_questions,omitempty"`
}

// submissionIssueDetails maps missing question IDs back to their text so the
// respondent sees which questions are unanswered, not raw IDs.
func submissionIssueDetails(form *domain.Form, issues *fill.SubmissionIssues) submissionIssues {
	texts := make(map[uuid.UUID]string, len(form.Questions))
	for _, q := range form.Questions {
		texts[q.ID] = q.Text
	}

	details := submissionIssues{UnknownQuestions: issues.UnknownQuestions}
	for _, id := range issues.MissingRequired {
		details.MissingQuestions = append(details.MissingQuestions, texts[id])
	}
	return details
}

type listResponsesResponse struct {
	Responses []*domain.Response `json:"responses"`
	Total     int                `json:"total"`
}

func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request) {
	formID, err := parseUUID(r.PathValue("formId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid form ID")
		return
	}

	if _, err := h.repo.GetForm(r.Context(), formID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Form not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get form")
		return
	}

	responses, err := h.repo.ListResponses(r.Context(), formID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list responses")
		return
	}
	if responses == nil {
		responses = []*domain.Response{}
	}
	writeJSON(w, http.StatusOK, listResponsesResponse{Responses: responses, Total: len(responses)})
}

// Export

func (h *Handler) ExportResponses(w http.ResponseWriter, r *http.Request) {
	formID, err := parseUUID(r.PathValue("formId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid form ID")
		return
	}

	form, err := h.repo.GetForm(r.Context(), formID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Form not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get form")
		return
	}

	responses, err := h.repo.ListResponses(r.Context(), formID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list responses")
		return
	}

	contents, err := export.GenerateBundle(export.Input{Form: form, Responses: responses})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate export")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteZip(contents, &buf); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to write export archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", form.Slug+"-responses.zip"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
