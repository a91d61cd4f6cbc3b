package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLStore persists conversation state in Postgres or SQLite through
// database/sql. The schema is created lazily on first use.
//
// Placeholders are written $1..$n in order of appearance, which both pgx
// and modernc's sqlite driver bind positionally.
type SQLStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// OpenPostgres connects via the pgx stdlib driver.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// OpenSQLite opens (and creates if needed) a local SQLite database file.
func OpenSQLite(path string) (*SQLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "legado.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
  chat_id BIGINT PRIMARY KEY,
  first_name TEXT NOT NULL DEFAULT '',
  mode TEXT NOT NULL DEFAULT 'IDLE',
  question_order INTEGER NOT NULL DEFAULT 0,
  draft TEXT NOT NULL DEFAULT '',
  retries INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  ord INTEGER PRIMARY KEY,
  text TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS stories (
  id TEXT PRIMARY KEY,
  chat_id BIGINT NOT NULL,
  question_order INTEGER NOT NULL,
  story TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stories_chat_id ON stories (chat_id);
`)
	})
	return s.schemaErr
}

func scanUser(row interface{ Scan(...any) error }) (UserState, error) {
	var u UserState
	err := row.Scan(
		&u.ChatID,
		&u.FirstName,
		&u.Mode,
		&u.QuestionOrder,
		&u.Draft,
		&u.Retries,
		&u.CreatedAt,
	)
	return u, err
}

func (s *SQLStore) GetUser(ctx context.Context, chatID int64) (UserState, bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return UserState{}, false, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT chat_id, first_name, mode, question_order, draft, retries, created_at
FROM users WHERE chat_id = $1`, chatID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UserState{}, false, nil
	}
	if err != nil {
		return UserState{}, false, err
	}
	return u, true, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, chatID int64, firstName string) (UserState, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return UserState{}, err
	}
	u := UserState{
		ChatID:    chatID,
		FirstName: strings.TrimSpace(firstName),
		Mode:      ModeIdle,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (chat_id, first_name, mode, question_order, draft, retries, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (chat_id) DO NOTHING`,
		u.ChatID, u.FirstName, string(u.Mode), u.QuestionOrder, u.Draft, u.Retries, u.CreatedAt)
	if err != nil {
		return UserState{}, err
	}
	return u, nil
}

func (s *SQLStore) CommitTurn(ctx context.Context, chatID int64, patch StatePatch, record *StoryRecord) (UserState, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return UserState{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UserState{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
SELECT chat_id, first_name, mode, question_order, draft, retries, created_at
FROM users WHERE chat_id = $1`, chatID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UserState{}, ErrNotFound
	}
	if err != nil {
		return UserState{}, err
	}

	patch.apply(&u)
	_, err = tx.ExecContext(ctx, `
UPDATE users SET mode = $1, question_order = $2, draft = $3, retries = $4
WHERE chat_id = $5`,
		string(u.Mode), u.QuestionOrder, u.Draft, u.Retries, u.ChatID)
	if err != nil {
		return UserState{}, err
	}

	if record != nil {
		_, err = tx.ExecContext(ctx, `
INSERT INTO stories (id, chat_id, question_order, story, created_at)
VALUES ($1, $2, $3, $4, $5)`,
			record.ID, record.ChatID, record.QuestionOrder, record.Text, record.CreatedAt)
		if err != nil {
			return UserState{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return UserState{}, err
	}
	return u, nil
}

func (s *SQLStore) QuestionByOrder(ctx context.Context, order int) (Question, bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Question{}, false, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT ord, text, category FROM questions WHERE ord = $1`, order)
	var q Question
	err := row.Scan(&q.Order, &q.Text, &q.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, false, nil
	}
	if err != nil {
		return Question{}, false, err
	}
	return q, true, nil
}

func (s *SQLStore) NextQuestionAfter(ctx context.Context, order int) (Question, bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Question{}, false, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT ord, text, category FROM questions WHERE ord > $1 ORDER BY ord ASC LIMIT 1`, order)
	var q Question
	err := row.Scan(&q.Order, &q.Text, &q.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, false, nil
	}
	if err != nil {
		return Question{}, false, err
	}
	return q, true, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context) ([]Question, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT ord, text, category FROM questions ORDER BY ord ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Question, 0, 32)
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.Order, &q.Text, &q.Category); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if q.Order <= 0 {
		return fmt.Errorf("question order must be positive, got %d", q.Order)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO questions (ord, text, category)
VALUES ($1, $2, $3)
ON CONFLICT (ord)
DO UPDATE SET text = EXCLUDED.text, category = EXCLUDED.category`,
		q.Order, q.Text, q.Category)
	return err
}

func (s *SQLStore) ListStories(ctx context.Context, chatID int64) ([]StoryRecord, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, chat_id, question_order, story, created_at
FROM stories WHERE chat_id = $1
ORDER BY question_order ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoryRecord
	for rows.Next() {
		var r StoryRecord
		if err := rows.Scan(&r.ID, &r.ChatID, &r.QuestionOrder, &r.Text, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
