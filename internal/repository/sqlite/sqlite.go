package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/protomforms/backend/internal/domain"
	"github.com/protomforms/backend/internal/repository"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// methods run inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
	store
}

// New creates a new SQLite repository.
func New(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	repo := &SQLiteRepository{db: db, store: store{q: db}}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return repo, nil
}

func (r *SQLiteRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS forms (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		thank_you_message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		form_id TEXT NOT NULL REFERENCES forms(id),
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		required INTEGER NOT NULL DEFAULT 0,
		options TEXT, -- JSON array or NULL
		conditions TEXT NOT NULL DEFAULT '[]', -- JSON array
		position INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_questions_form ON questions(form_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_questions_form_position ON questions(form_id, position);

	CREATE TABLE IF NOT EXISTS responses (
		id TEXT PRIMARY KEY,
		form_id TEXT NOT NULL REFERENCES forms(id),
		progressive_number INTEGER NOT NULL,
		answers TEXT NOT NULL, -- JSON object: question_id -> value
		submitted_at TEXT NOT NULL,
		UNIQUE(form_id, progressive_number)
	);
	CREATE INDEX IF NOT EXISTS idx_responses_form ON responses(form_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// WithTx executes fn within a transaction.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(repository.Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &txRepository{store: store{q: tx}}
	if err := fn(txRepo); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// txRepository runs the shared queries against an open transaction.
type txRepository struct {
	store
}

// WithTx on a transaction repository just executes fn in the same
// transaction.
func (t *txRepository) WithTx(ctx context.Context, fn func(repository.Repository) error) error {
	return fn(t)
}

func (t *txRepository) Close() error {
	return nil // No-op for transaction wrapper
}

// store holds the query implementations shared by the plain repository and
// the transaction wrapper.
type store struct {
	q dbtx
}

// Forms

func (s store) CreateForm(ctx context.Context, f *domain.Form) error {
	status := string(f.Status)
	if status == "" {
		status = string(domain.FormStatusDraft)
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO forms (id, title, description, slug, status, thank_you_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID.String(), f.Title, f.Description, f.Slug, status, f.ThankYouMessage,
		f.CreatedAt.Format(time.RFC3339), f.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	for i, q := range f.Questions {
		if err := s.insertQuestion(ctx, f.ID, i, q); err != nil {
			return err
		}
	}
	return nil
}

func (s store) insertQuestion(ctx context.Context, formID uuid.UUID, position int, q domain.Question) error {
	conditionsJSON, err := json.Marshal(q.Conditions)
	if err != nil {
		return err
	}
	if q.Conditions == nil {
		conditionsJSON = []byte("[]")
	}

	var optionsVal interface{}
	if q.Options != nil {
		optionsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		optionsVal = string(optionsJSON)
	}

	required := 0
	if q.Required {
		required = 1
	}

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO questions (id, form_id, text, type, required, options, conditions, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID.String(), formID.String(), q.Text, string(q.Type), required,
		optionsVal, string(conditionsJSON), position)
	return err
}

func (s store) GetForm(ctx context.Context, id uuid.UUID) (*domain.Form, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, title, description, slug, status, thank_you_message, created_at, updated_at
		 FROM forms WHERE id = ?`, id.String())
	return s.loadForm(ctx, row)
}

func (s store) GetFormBySlug(ctx context.Context, slug string) (*domain.Form, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, title, description, slug, status, thank_you_message, created_at, updated_at
		 FROM forms WHERE slug = ?`, slug)
	return s.loadForm(ctx, row)
}

func (s store) loadForm(ctx context.Context, row *sql.Row) (*domain.Form, error) {
	f, err := scanForm(row)
	if err != nil {
		return nil, err
	}
	f.Questions, err = s.listQuestions(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s store) ListForms(ctx context.Context) ([]*domain.Form, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, title, description, slug, status, thank_you_message, created_at, updated_at
		 FROM forms ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forms []*domain.Form
	for rows.Next() {
		f, err := scanFormFromRows(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Listing returns forms with their questions so callers can show
	// question counts without a second round trip.
	for _, f := range forms {
		f.Questions, err = s.listQuestions(ctx, f.ID)
		if err != nil {
			return nil, err
		}
	}
	return forms, nil
}

func (s store) listQuestions(ctx context.Context, formID uuid.UUID) ([]domain.Question, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, form_id, text, type, required, options, conditions, position
		 FROM questions WHERE form_id = ? ORDER BY position ASC`, formID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func (s store) UpdateFormStatus(ctx context.Context, id uuid.UUID, status domain.FormStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE forms SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339), id.String())
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s store) DeleteForm(ctx context.Context, id uuid.UUID) error {
	idStr := id.String()
	// Delete in order respecting foreign key constraints
	if _, err := s.q.ExecContext(ctx, `DELETE FROM responses WHERE form_id = ?`, idStr); err != nil {
		return err
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM questions WHERE form_id = ?`, idStr); err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM forms WHERE id = ?`, idStr)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanForm(row *sql.Row) (*domain.Form, error) {
	var f domain.Form
	var idStr, statusStr, createdStr, updatedStr string
	if err := row.Scan(&idStr, &f.Title, &f.Description, &f.Slug, &statusStr, &f.ThankYouMessage, &createdStr, &updatedStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return parseForm(idStr, statusStr, createdStr, updatedStr, &f)
}

func scanFormFromRows(rows *sql.Rows) (*domain.Form, error) {
	var f domain.Form
	var idStr, statusStr, createdStr, updatedStr string
	if err := rows.Scan(&idStr, &f.Title, &f.Description, &f.Slug, &statusStr, &f.ThankYouMessage, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	return parseForm(idStr, statusStr, createdStr, updatedStr, &f)
}

func parseForm(idStr, statusStr, createdStr, updatedStr string, f *domain.Form) (*domain.Form, error) {
	var err error
	f.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	f.Status = domain.FormStatus(statusStr)
	f.CreatedAt, err = time.Parse(time.RFC3339, createdStr)
	if err != nil {
		return nil, err
	}
	f.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func scanQuestion(rows *sql.Rows) (*domain.Question, error) {
	var q domain.Question
	var idStr, formStr, typeStr, conditionsJSON string
	var optionsJSON sql.NullString
	var required int

	if err := rows.Scan(&idStr, &formStr, &q.Text, &typeStr, &required, &optionsJSON, &conditionsJSON, &q.Position); err != nil {
		return nil, err
	}

	var err error
	q.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	q.FormID, err = uuid.Parse(formStr)
	if err != nil {
		return nil, err
	}
	q.Type = domain.QuestionType(typeStr)
	q.Required = required != 0
	if optionsJSON.Valid {
		if err := json.Unmarshal([]byte(optionsJSON.String), &q.Options); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal([]byte(conditionsJSON), &q.Conditions); err != nil {
		return nil, err
	}
	return &q, nil
}

// Responses

func (s store) CreateResponse(ctx context.Context, resp *domain.Response) error {
	if resp.ProgressiveNumber == 0 {
		// Per-form counter; run inside WithTx to keep it race-free.
		row := s.q.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(progressive_number), 0) + 1 FROM responses WHERE form_id = ?`,
			resp.FormID.String())
		if err := row.Scan(&resp.ProgressiveNumber); err != nil {
			return err
		}
	}

	answersJSON, err := json.Marshal(resp.Answers)
	if err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO responses (id, form_id, progressive_number, answers, submitted_at)
		 VALUES (?, ?, ?, ?, ?)`,
		resp.ID.String(), resp.FormID.String(), resp.ProgressiveNumber,
		string(answersJSON), resp.SubmittedAt.Format(time.RFC3339))
	return err
}

func (s store) GetResponse(ctx context.Context, id uuid.UUID) (*domain.Response, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, form_id, progressive_number, answers, submitted_at FROM responses WHERE id = ?`,
		id.String())

	var resp domain.Response
	var idStr, formStr, answersJSON, submittedStr string
	if err := row.Scan(&idStr, &formStr, &resp.ProgressiveNumber, &answersJSON, &submittedStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return parseResponse(idStr, formStr, answersJSON, submittedStr, &resp)
}

func (s store) ListResponses(ctx context.Context, formID uuid.UUID) ([]*domain.Response, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, form_id, progressive_number, answers, submitted_at
		 FROM responses WHERE form_id = ? ORDER BY progressive_number ASC`,
		formID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []*domain.Response
	for rows.Next() {
		var resp domain.Response
		var idStr, formStr, answersJSON, submittedStr string
		if err := rows.Scan(&idStr, &formStr, &resp.ProgressiveNumber, &answersJSON, &submittedStr); err != nil {
			return nil, err
		}
		r, err := parseResponse(idStr, formStr, answersJSON, submittedStr, &resp)
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func (s store) CountResponses(ctx context.Context, formID uuid.UUID) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM responses WHERE form_id = ?`, formID.String()).Scan(&count)
	return count, err
}

func parseResponse(idStr, formStr, answersJSON, submittedStr string, resp *domain.Response) (*domain.Response, error) {
	var err error
	resp.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	resp.FormID, err = uuid.Parse(formStr)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answersJSON), &resp.Answers); err != nil {
		return nil, err
	}
	resp.SubmittedAt, err = time.Parse(time.RFC3339, submittedStr)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Ensure implementations satisfy the interface
var _ repository.Repository = (*SQLiteRepository)(nil)
var _ repository.Repository = (*txRepository)(nil)
