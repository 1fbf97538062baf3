package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3_fk"

func init() {
	// Every connection enforces foreign keys, including ones the pool
	// opens after a bad connection is discarded.
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec("PRAGMA foreign_keys = ON", nil)
			return err
		},
	})
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers and keeps in-memory databases
	// consistent across calls.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS students (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        grade TEXT,
        interests_json TEXT, -- JSON array of strings, NULL when absent
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS messages (
        seq INTEGER PRIMARY KEY AUTOINCREMENT, -- insertion order, breaks timestamp ties
        id TEXT UNIQUE NOT NULL, -- UUID
        student_id TEXT NOT NULL,
        content TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('student', 'tutor')),
        timestamp DATETIME NOT NULL,
        FOREIGN KEY (student_id) REFERENCES students (id)
    );
    CREATE INDEX IF NOT EXISTS idx_messages_student_ts ON messages (student_id, timestamp, seq);

    CREATE TABLE IF NOT EXISTS progress (
        id TEXT PRIMARY KEY, -- UUID
        student_id TEXT NOT NULL,
        module_id TEXT NOT NULL,
        module_name TEXT NOT NULL,
        completed BOOLEAN NOT NULL DEFAULT FALSE,
        score REAL,
        timestamp DATETIME NOT NULL,
        UNIQUE (student_id, module_id)
    );

    CREATE TABLE IF NOT EXISTS modules (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT UNIQUE NOT NULL, -- UUID
        name TEXT NOT NULL,
        description TEXT NOT NULL,
        subject TEXT NOT NULL,
        difficulty INTEGER NOT NULL,
        locked BOOLEAN NOT NULL DEFAULT TRUE,
        requirements_json TEXT
    );

    CREATE TABLE IF NOT EXISTS media_chunks (
        id TEXT PRIMARY KEY, -- UUID
        student_id TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        mime_type TEXT NOT NULL,
        path TEXT NOT NULL,
        filename TEXT NOT NULL,
        size_bytes INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_media_chunks_student ON media_chunks (student_id, timestamp);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Student methods
func (s *SQLiteStore) CreateStudent(ctx context.Context, student *Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	interests, err := marshalStrings(student.Interests)
	if err != nil {
		return fmt.Errorf("failed to marshal interests: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO students (id, name, grade, interests_json, created_at) VALUES (?, ?, ?, ?, ?)",
		student.ID, student.Name, student.Grade, interests, student.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetStudentByID(ctx context.Context, id string) (*Student, error) {
	var student Student
	var grade, interests sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, grade, interests_json, created_at FROM students WHERE id = ?", id).
		Scan(&student.ID, &student.Name, &grade, &interests, &student.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Student not found
		}
		return nil, fmt.Errorf("failed to query student: %w", err)
	}
	if grade.Valid {
		student.Grade = &grade.String
	}
	if student.Interests, err = unmarshalStrings(interests); err != nil {
		return nil, fmt.Errorf("failed to decode interests for student %s: %w", id, err)
	}
	return &student, nil
}

// Message methods
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, student_id, content, role, timestamp) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.StudentID, msg.Content, msg.Role, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	return nil
}

// ListMessagesByStudent returns the transcript oldest first. Rows sharing a
// timestamp come back in insertion order.
func (s *SQLiteStore) ListMessagesByStudent(ctx context.Context, studentID string, limit int) ([]Message, error) {
	query := `
        SELECT id, student_id, content, role, timestamp
        FROM messages
        WHERE student_id = ?
        ORDER BY timestamp ASC, seq ASC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, query, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.StudentID, &msg.Content, &msg.Role, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return messages, nil
}

// Progress methods
const progressColumns = "id, student_id, module_id, module_name, completed, score, timestamp"

func scanProgress(row interface{ Scan(...any) error }) (*ProgressRecord, error) {
	var rec ProgressRecord
	var score sql.NullFloat64
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.ModuleID, &rec.ModuleName, &rec.Completed, &score, &rec.Timestamp); err != nil {
		return nil, err
	}
	if score.Valid {
		rec.Score = &score.Float64
	}
	return &rec, nil
}

func (s *SQLiteStore) FindProgressByKey(ctx context.Context, studentID, moduleID string) (*ProgressRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+progressColumns+" FROM progress WHERE student_id = ? AND module_id = ?", studentID, moduleID)
	rec, err := scanProgress(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) GetProgressByID(ctx context.Context, id string) (*ProgressRecord, error) {
	rec, err := scanProgress(s.db.QueryRowContext(ctx, "SELECT "+progressColumns+" FROM progress WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progress by id: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) InsertProgress(ctx context.Context, rec *ProgressRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO progress ("+progressColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.StudentID, rec.ModuleID, rec.ModuleName, rec.Completed, rec.Score, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to execute progress insert: %w", err)
	}
	return nil
}

// UpdateProgressFields always writes completed and the last-write timestamp;
// score is written only when supplied.
func (s *SQLiteStore) UpdateProgressFields(ctx context.Context, id string, upd ProgressUpdate) error {
	sets := []string{"completed = ?", "timestamp = ?"}
	args := []any{upd.Completed, time.Now().UTC()}
	if upd.Score != nil {
		sets = append(sets, "score = ?")
		args = append(args, *upd.Score)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE progress SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to execute progress update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("progress record %s not found, not updated", id)
	}
	return nil
}

func (s *SQLiteStore) ListProgressByStudent(ctx context.Context, studentID string, limit int) ([]ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+progressColumns+" FROM progress WHERE student_id = ? ORDER BY timestamp ASC LIMIT ?", studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	records := []ProgressRecord{}
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress rows: %w", err)
	}
	return records, nil
}

// Module methods
func (s *SQLiteStore) ListModules(ctx context.Context) ([]Module, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, subject, difficulty, locked, requirements_json FROM modules ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	modules := []Module{}
	for rows.Next() {
		var m Module
		var reqs sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Subject, &m.Difficulty, &m.Locked, &reqs); err != nil {
			return nil, fmt.Errorf("failed to scan module row: %w", err)
		}
		if m.Requirements, err = unmarshalStrings(reqs); err != nil {
			return nil, fmt.Errorf("failed to decode requirements for module %s: %w", m.ID, err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate module rows: %w", err)
	}
	return modules, nil
}

// SeedModules inserts defaults only when the catalog is empty. The check and
// the inserts share one transaction. It returns the number of rows inserted.
func (s *SQLiteStore) SeedModules(ctx context.Context, defaults []Module) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM modules").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count modules: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO modules (id, name, description, subject, difficulty, locked, requirements_json) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare module insert: %w", err)
	}
	defer stmt.Close()

	for i := range defaults {
		m := &defaults[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		reqs, err := marshalStrings(m.Requirements)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal requirements: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, m.ID, m.Name, m.Description, m.Subject, m.Difficulty, m.Locked, reqs); err != nil {
			return 0, fmt.Errorf("failed to insert module %q: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return len(defaults), nil
}

// MediaChunk methods
func (s *SQLiteStore) CreateMediaChunk(ctx context.Context, chunk *MediaChunk) error {
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO media_chunks (id, student_id, timestamp, mime_type, path, filename, size_bytes) VALUES (?, ?, ?, ?, ?, ?, ?)",
		chunk.ID, chunk.StudentID, chunk.Timestamp, chunk.MimeType, chunk.Path, chunk.Filename, chunk.SizeBytes)
	if err != nil {
		return fmt.Errorf("failed to execute media chunk insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMediaChunksByStudent(ctx context.Context, studentID string) ([]MediaChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, student_id, timestamp, mime_type, path, filename, size_bytes FROM media_chunks WHERE student_id = ? ORDER BY timestamp ASC", studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query media chunks: %w", err)
	}
	defer rows.Close()

	chunks := []MediaChunk{}
	for rows.Next() {
		var c MediaChunk
		if err := rows.Scan(&c.ID, &c.StudentID, &c.Timestamp, &c.MimeType, &c.Path, &c.Filename, &c.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan media chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media chunk rows: %w", err)
	}
	return chunks, nil
}

// nil slices are stored as NULL so that "absent" survives a round trip.
func marshalStrings(values []string) (sql.NullString, error) {
	if values == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalStrings(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
