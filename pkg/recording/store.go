package recording

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// Store persists recorded sessions in SQLite.
type Store struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens the SQLite database at path and creates the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartSession creates a new session for playerID.
func (s *Store) StartSession(ctx context.Context, playerID uuid.UUID, frameRate float64, startedAt time.Time) (Session, error) {
	sess := Session{
		ID:        uuid.New(),
		PlayerID:  playerID,
		StartedAt: startedAt.UTC().Truncate(time.Millisecond),
		FrameRate: frameRate,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, player_id, started_at, frame_rate) VALUES (?, ?, ?, ?)`,
		sess.ID.String(), playerID.String(), toMillis(startedAt), frameRate)
	if err != nil {
		return Session{}, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

// Append writes one frame to a session.
func (s *Store) Append(ctx context.Context, sessionID uuid.UUID, rec FrameRecord) error {
	return s.AppendBatch(ctx, sessionID, []FrameRecord{rec})
}

// AppendBatch writes frames to a session in one transaction. Either every
// frame is written or none is.
func (s *Store) AppendBatch(ctx context.Context, sessionID uuid.UUID, recs []FrameRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO frames (session_id, seq, recorded_at, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	id := sessionID.String()
	for _, rec := range recs {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", rec.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, id, int64(rec.Seq), toMillis(rec.Frame.Time), string(payload)); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: seq %d", ErrDuplicateFrame, rec.Seq)
			}
			return fmt.Errorf("append frame %d: %w", rec.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

const sessionColumns = `s.id, s.player_id, s.started_at, s.frame_rate, COUNT(f.seq)`

// Sessions lists every session, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+`
		   FROM sessions s LEFT JOIN frames f ON f.session_id = s.id
		  GROUP BY s.id
		  ORDER BY s.started_at, s.rowid`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// Session returns one session by ID.
func (s *Store) Session(ctx context.Context, id uuid.UUID) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+`
		   FROM sessions s LEFT JOIN frames f ON f.session_id = s.id
		  WHERE s.id = ?
		  GROUP BY s.id`, id.String())
	return scanSessionRow(row)
}

// Latest returns the most recently started session.
func (s *Store) Latest(ctx context.Context) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+`
		   FROM sessions s LEFT JOIN frames f ON f.session_id = s.id
		  GROUP BY s.id
		  ORDER BY s.started_at DESC, s.rowid DESC
		  LIMIT 1`)
	return scanSessionRow(row)
}

// Frames returns the frames of a session in sequence order.
func (s *Store) Frames(ctx context.Context, sessionID uuid.UUID) ([]FrameRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM frames WHERE session_id = ? ORDER BY seq`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		var rec FrameRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		id, playerID string
		started      int64
		sess         Session
	)
	if err := row.Scan(&id, &playerID, &started, &sess.FrameRate, &sess.Frames); err != nil {
		return Session{}, err
	}
	var err error
	if sess.ID, err = uuid.Parse(id); err != nil {
		return Session{}, fmt.Errorf("parse session id: %w", err)
	}
	if sess.PlayerID, err = uuid.Parse(playerID); err != nil {
		return Session{}, fmt.Errorf("parse player id: %w", err)
	}
	sess.StartedAt = fromMillis(started)
	return sess, nil
}

func scanSessionRow(row *sql.Row) (Session, error) {
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
