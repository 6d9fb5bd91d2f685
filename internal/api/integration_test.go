package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/domain"
	"github.com/protomforms/backend/internal/repository/sqlite"
	"github.com/protomforms/backend/internal/validator"
)

// setupIntegrationServer wires the handler against a real SQLite database and
// serves it through the route table, so requests exercise the mux patterns.
func setupIntegrationServer(t *testing.T) *httptest.Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "protomforms-integration-*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	repo, err := sqlite.New(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	val, err := validator.New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	mux := http.NewServeMux()
	NewHandler(repo, val).RegisterRoutes(mux)
	srv := httptest.NewServer(Logger(CORS(CORSConfig{})(mux)))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
}

// TestIntegration_FormLifecycle walks a form from creation through publishing,
// a branched fill-out, submission, listing and export.
func TestIntegration_FormLifecycle(t *testing.T) {
	srv := setupIntegrationServer(t)

	ownsCar := uuid.New()
	brand := uuid.New()
	comments := uuid.New()

	// Step 1: create a form with a conditional question.
	createBody := fmt.Sprintf(`{
		"title": "Car survey",
		"slug": "car-survey",
		"thank_you_message": "Thanks!",
		"questions": [
			{"id": %q, "text": "Do you own a car?", "type": "MULTIPLE_CHOICE", "required": true, "options": ["yes", "no"]},
			{"id": %q, "text": "Which brand?", "type": "TEXT", "required": true,
			 "conditions": [{"question_id": %q, "operator": "equals", "value": "yes"}]},
			{"id": %q, "text": "Any comments?", "type": "TEXT"}
		]
	}`, ownsCar, brand, ownsCar, comments)

	resp := postJSON(t, srv.URL+"/forms", createBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Create form status = %d", resp.StatusCode)
	}
	var created createFormResponse
	decodeBody(t, resp, &created)

	formURL := srv.URL + "/forms/" + created.FormID.String()

	// Step 2: submissions are rejected while the form is a draft.
	resp = postJSON(t, formURL+"/responses", fmt.Sprintf(`{"answers": {%q: "no"}}`, ownsCar))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("Draft submission status = %d, want 403", resp.StatusCode)
	}

	// Step 3: publish.
	resp = postJSON(t, formURL+"/publish", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Publish status = %d", resp.StatusCode)
	}

	// Step 4: the fill-out page loads the form by slug.
	getResp, err := http.Get(srv.URL + "/forms/by-slug/car-survey")
	if err != nil {
		t.Fatalf("Get by slug failed: %v", err)
	}
	var form domain.Form
	decodeBody(t, getResp, &form)
	if form.Status != domain.FormStatusPublished {
		t.Errorf("Form status = %s, want PUBLISHED", form.Status)
	}

	// Step 5: resolving visibility with "yes" reveals the branch question.
	resp = postJSON(t, formURL+"/visibility", fmt.Sprintf(`{"answers": {%q: "yes"}, "current_index": 0}`, ownsCar))
	var vis visibilityResponse
	decodeBody(t, resp, &vis)
	if len(vis.VisibleQuestionIDs) != 3 {
		t.Fatalf("Visible question count = %d, want 3: %v", len(vis.VisibleQuestionIDs), vis.VisibleQuestionIDs)
	}
	if vis.NextIndex != 1 {
		t.Errorf("NextIndex = %d, want 1", vis.NextIndex)
	}

	// With "no" the branch question disappears and the next step skips it.
	resp = postJSON(t, formURL+"/visibility", fmt.Sprintf(`{"answers": {%q: "no"}, "current_index": 0}`, ownsCar))
	decodeBody(t, resp, &vis)
	if len(vis.VisibleQuestionIDs) != 2 {
		t.Fatalf("Visible question count = %d, want 2", len(vis.VisibleQuestionIDs))
	}
	if vis.NextIndex != 2 {
		t.Errorf("NextIndex = %d, want 2", vis.NextIndex)
	}

	// Step 6: submitting "yes" without the branch answer is rejected.
	resp = postJSON(t, formURL+"/responses", fmt.Sprintf(`{"answers": {%q: "yes"}}`, ownsCar))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Incomplete submission status = %d, want 400", resp.StatusCode)
	}

	// Step 7: two valid submissions, one down each branch.
	resp = postJSON(t, formURL+"/responses", fmt.Sprintf(`{"answers": {%q: "yes", %q: "Fiat", %q: "nice form"}}`, ownsCar, brand, comments))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("First submission status = %d", resp.StatusCode)
	}
	var submitted submitResponseResponse
	decodeBody(t, resp, &submitted)
	if submitted.ProgressiveNumber != 1 {
		t.Errorf("First ProgressiveNumber = %d, want 1", submitted.ProgressiveNumber)
	}
	if submitted.ThankYouMessage != "Thanks!" {
		t.Errorf("ThankYouMessage = %q, want %q", submitted.ThankYouMessage, "Thanks!")
	}

	resp = postJSON(t, formURL+"/responses", fmt.Sprintf(`{"answers": {%q: "no"}}`, ownsCar))
	decodeBody(t, resp, &submitted)
	if submitted.ProgressiveNumber != 2 {
		t.Errorf("Second ProgressiveNumber = %d, want 2", submitted.ProgressiveNumber)
	}

	// Step 8: both responses are listed in order.
	getResp, err = http.Get(formURL + "/responses")
	if err != nil {
		t.Fatalf("List responses failed: %v", err)
	}
	var list listResponsesResponse
	decodeBody(t, getResp, &list)
	if list.Total != 2 {
		t.Fatalf("Total = %d, want 2", list.Total)
	}
	if v := list.Responses[0].Answers[brand]; v.Text() != "Fiat" {
		t.Errorf("Brand answer = %q, want Fiat", v.Text())
	}

	// Step 9: the export bundle contains CSV and JSON.
	getResp, err = http.Get(formURL + "/export")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("Export status = %d", getResp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(getResp.Body); err != nil {
		t.Fatalf("Failed to read export body: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Export is not a zip: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["responses.csv"] || !names["responses.json"] {
		t.Errorf("Export missing files, got %v", names)
	}

	// Step 10: closing the form stops new submissions.
	resp = postJSON(t, formURL+"/close", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Close status = %d", resp.StatusCode)
	}
	resp = postJSON(t, formURL+"/responses", fmt.Sprintf(`{"answers": {%q: "no"}}`, ownsCar))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Closed submission status = %d, want 403", resp.StatusCode)
	}
}

// TestIntegration_SlugConflict covers the duplicate-slug path end to end.
func TestIntegration_SlugConflict(t *testing.T) {
	srv := setupIntegrationServer(t)

	body := fmt.Sprintf(`{"title": "One", "slug": "taken", "questions": [{"id": %q, "text": "Q", "type": "TEXT"}]}`, uuid.New())
	resp := postJSON(t, srv.URL+"/forms", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("First create status = %d", resp.StatusCode)
	}

	body = fmt.Sprintf(`{"title": "Two", "slug": "taken", "questions": [{"id": %q, "text": "Q", "type": "TEXT"}]}`, uuid.New())
	resp = postJSON(t, srv.URL+"/forms", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Second create status = %d, want 409", resp.StatusCode)
	}
}
