// Package export renders a form's collected responses as a downloadable
// bundle: a CSV with one row per response and one column per question, and
// the raw responses as JSON.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/protomforms/backend/internal/domain"
)

// BundleContents holds the files of a response export.
type BundleContents struct {
	ResponsesCSV  []byte
	ResponsesJSON []byte
}

// Input holds input for generating an export.
type Input struct {
	Form      *domain.Form
	Responses []*domain.Response
}

// GenerateBundle creates all files for a response export.
func GenerateBundle(input Input) (*BundleContents, error) {
	contents := &BundleContents{}

	csvData, err := renderCSV(input.Form, input.Responses)
	if err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	contents.ResponsesCSV = csvData

	jsonData, err := json.MarshalIndent(input.Responses, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal responses: %w", err)
	}
	contents.ResponsesJSON = jsonData

	return contents, nil
}

// WriteZip writes the bundle contents to a zip archive.
func WriteZip(contents *BundleContents, w io.Writer) error {
	zw := zip.NewWriter(w)
	defer zw.Close()

	files := map[string][]byte{
		"responses.csv":  contents.ResponsesCSV,
		"responses.json": contents.ResponsesJSON,
	}

	for name, data := range files {
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	return nil
}

func renderCSV(form *domain.Form, responses []*domain.Response) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	header := []string{"progressive_number", "submitted_at"}
	for _, q := range form.Questions {
		header = append(header, q.Text)
	}
	if err := cw.Write(header); err != nil {
		return nil, err
	}

	for _, resp := range responses {
		row := []string{
			fmt.Sprintf("%d", resp.ProgressiveNumber),
			resp.SubmittedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for _, q := range form.Questions {
			row = append(row, formatAnswer(resp.Answers[q.ID]))
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}

	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// formatAnswer renders an answer value for a spreadsheet cell. Lists are
// joined with ", " to stay readable; an unanswered question is an empty
// cell.
func formatAnswer(v domain.Value) string {
	if elems, ok := v.List(); ok {
		return strings.Join(elems, ", ")
	}
	return v.Text()
}
