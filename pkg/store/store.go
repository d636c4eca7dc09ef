// Package store implements the relational structured store: users,
// feedback, learned_corrections, knowledge_nodes, knowledge_edges. It
// supports sqlite, postgres, and mysql through database/sql, selected by
// dialect at construction the way the rest of this codebase's SQL-backed
// components do.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/lzrong0203/newsspark/pkg/model"
)

// Store is the structured store. Dialect drives both the registered
// driver name and minor SQL-syntax differences (placeholder style,
// upsert clause).
type Store struct {
	db      *sql.DB
	dialect string
}

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Open opens (and, for sqlite, creates) the database at dsn and ensures
// the schema exists. SQLite is restricted to a single connection, since
// it only supports one writer at a time; serializing access here avoids
// "database is locked" errors rather than retrying around them.
func Open(dialect, dsn string) (*Store, error) {
	driverName := dialect
	if dialect == DialectSQLite {
		driverName = "sqlite3"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("structured", "open", "failed to open database", err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    profile_json TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
    feedback_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    processed INTEGER NOT NULL DEFAULT 0,
    record_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_user_processed ON feedback(user_id, processed);

CREATE TABLE IF NOT EXISTS learned_corrections (
    correction_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    confidence REAL NOT NULL,
    record_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_corrections_user ON learned_corrections(user_id);

CREATE TABLE IF NOT EXISTS knowledge_nodes (
    node_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    node_kind TEXT NOT NULL,
    name TEXT NOT NULL,
    record_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nodes_user ON knowledge_nodes(user_id);

CREATE TABLE IF NOT EXISTS knowledge_edges (
    edge_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    source_node_id TEXT NOT NULL,
    target_node_id TEXT NOT NULL,
    record_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_user ON knowledge_edges(user_id);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return newssparkerrors.NewStoreError("structured", "init_schema", "failed to create tables", err)
	}
	return nil
}

// --- users ---------------------------------------------------------------

func (s *Store) GetUser(ctx context.Context, userID string) (*model.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT profile_json FROM users WHERE user_id = ?`, userID)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, newssparkerrors.NewStoreError("structured", "get_user", "query failed", err)
	}
	var profile model.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, newssparkerrors.NewStoreError("structured", "get_user", "decode profile failed", err)
	}
	return &profile, nil
}

func (s *Store) PutUser(ctx context.Context, profile *model.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "put_user", "encode profile failed", err)
	}
	_, err = s.db.ExecContext(ctx, s.upsertUserSQL(), profile.UserID, string(raw), profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "put_user", "upsert failed", err)
	}
	return nil
}

func (s *Store) upsertUserSQL() string {
	switch s.dialect {
	case DialectMySQL:
		return `INSERT INTO users (user_id, profile_json, created_at, updated_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE profile_json = VALUES(profile_json), updated_at = VALUES(updated_at)`
	case DialectPostgres:
		return `INSERT INTO users (user_id, profile_json, created_at, updated_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE SET profile_json = EXCLUDED.profile_json, updated_at = EXCLUDED.updated_at`
	default:
		return `INSERT INTO users (user_id, profile_json, created_at, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at`
	}
}

// --- feedback --------------------------------------------------------------

func (s *Store) StoreFeedback(ctx context.Context, fb *model.UserFeedback) error {
	raw, err := json.Marshal(fb)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "store_feedback", "encode failed", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO feedback (feedback_id, user_id, created_at, processed, record_json) VALUES (?, ?, ?, ?, ?)`,
		fb.FeedbackID, fb.UserID, fb.CreatedAt, boolToInt(fb.Processed), string(raw))
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "store_feedback", "insert failed", err)
	}
	return nil
}

func (s *Store) GetUnprocessedFeedback(ctx context.Context, userID string) ([]model.UserFeedback, error) {
	return s.queryFeedback(ctx, "get_unprocessed_feedback",
		`SELECT record_json FROM feedback WHERE user_id = ? AND processed = 0 ORDER BY created_at ASC`, userID)
}

// GetAllFeedback returns every feedback row for userID, processed or not,
// ordered oldest first. Used by the GDPR export, which must not silently
// drop feedback the Feedback Processor has already distilled.
func (s *Store) GetAllFeedback(ctx context.Context, userID string) ([]model.UserFeedback, error) {
	return s.queryFeedback(ctx, "get_all_feedback",
		`SELECT record_json FROM feedback WHERE user_id = ? ORDER BY created_at ASC`, userID)
}

func (s *Store) queryFeedback(ctx context.Context, op, query, userID string) ([]model.UserFeedback, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("structured", op, "query failed", err)
	}
	defer rows.Close()

	var out []model.UserFeedback
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", op, "scan failed", err)
		}
		var fb model.UserFeedback
		if err := json.Unmarshal([]byte(raw), &fb); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", op, "decode failed", err)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

func (s *Store) MarkFeedbackProcessed(ctx context.Context, feedbackID string, learnedAt time.Time) error {
	row := s.db.QueryRowContext(ctx, `SELECT record_json FROM feedback WHERE feedback_id = ?`, feedbackID)
	var raw string
	if err := row.Scan(&raw); err != nil {
		return newssparkerrors.NewStoreError("structured", "mark_feedback_processed", "lookup failed", err)
	}
	var fb model.UserFeedback
	if err := json.Unmarshal([]byte(raw), &fb); err != nil {
		return newssparkerrors.NewStoreError("structured", "mark_feedback_processed", "decode failed", err)
	}
	fb.Processed = true
	fb.LearnedAt = &learnedAt
	updated, err := json.Marshal(fb)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "mark_feedback_processed", "encode failed", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE feedback SET processed = 1, record_json = ? WHERE feedback_id = ?`, string(updated), feedbackID)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "mark_feedback_processed", "update failed", err)
	}
	return nil
}

// --- learned_corrections -----------------------------------------------------

func (s *Store) StoreCorrection(ctx context.Context, c *model.LearnedCorrection) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "store_correction", "encode failed", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO learned_corrections (correction_id, user_id, created_at, confidence, record_json) VALUES (?, ?, ?, ?, ?)`,
		c.CorrectionID, c.UserID, c.CreatedAt, c.Confidence, string(raw))
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "store_correction", "insert failed", err)
	}
	return nil
}

// GetCorrections returns up to limit corrections for userID, ordered by
// confidence DESC, created_at DESC.
func (s *Store) GetCorrections(ctx context.Context, userID string, limit int) ([]model.LearnedCorrection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM learned_corrections WHERE user_id = ? ORDER BY confidence DESC, created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("structured", "get_corrections", "query failed", err)
	}
	defer rows.Close()

	var out []model.LearnedCorrection
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", "get_corrections", "scan failed", err)
		}
		var c model.LearnedCorrection
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", "get_corrections", "decode failed", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCorrection(ctx context.Context, c *model.LearnedCorrection) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "update_correction", "encode failed", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE learned_corrections SET confidence = ?, record_json = ? WHERE correction_id = ?`,
		c.Confidence, string(raw), c.CorrectionID)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "update_correction", "update failed", err)
	}
	return nil
}

// --- knowledge_nodes / knowledge_edges ---------------------------------------

func (s *Store) PutKnowledgeNode(ctx context.Context, n *model.KnowledgeNode) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "put_knowledge_node", "encode failed", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO knowledge_nodes (node_id, user_id, node_kind, name, record_json) VALUES (?, ?, ?, ?, ?)`,
		n.NodeID, n.UserID, string(n.NodeKind), n.Name, string(raw))
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "put_knowledge_node", "insert failed", err)
	}
	return nil
}

// FindKnowledgeNodesByTopic returns topic-kind nodes for userID whose name
// contains topic, matched with SQL LIKE; case sensitivity follows the
// dialect (SQLite's LIKE ignores ASCII case, PostgreSQL's does not).
func (s *Store) FindKnowledgeNodesByTopic(ctx context.Context, userID, topic string) ([]model.KnowledgeNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM knowledge_nodes WHERE user_id = ? AND node_kind = ? AND name LIKE ?`,
		userID, string(model.NodeTopic), "%"+topic+"%")
	if err != nil {
		return nil, newssparkerrors.NewStoreError("structured", "find_knowledge_nodes_by_topic", "query failed", err)
	}
	defer rows.Close()

	var out []model.KnowledgeNode
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", "find_knowledge_nodes_by_topic", "scan failed", err)
		}
		var n model.KnowledgeNode
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", "find_knowledge_nodes_by_topic", "decode failed", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetKnowledgeNodes returns every knowledge node recorded for userID,
// independent of node_kind or name — the GDPR export's view of the full
// per-user knowledge graph, as opposed to FindKnowledgeNodesByTopic's
// topic-scoped lookup.
func (s *Store) GetKnowledgeNodes(ctx context.Context, userID string) ([]model.KnowledgeNode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_json FROM knowledge_nodes WHERE user_id = ?`, userID)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("structured", "get_knowledge_nodes", "query failed", err)
	}
	defer rows.Close()

	var out []model.KnowledgeNode
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", "get_knowledge_nodes", "scan failed", err)
		}
		var n model.KnowledgeNode
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", "get_knowledge_nodes", "decode failed", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) PutKnowledgeEdge(ctx context.Context, e *model.KnowledgeEdge) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "put_knowledge_edge", "encode failed", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO knowledge_edges (edge_id, user_id, source_node_id, target_node_id, record_json) VALUES (?, ?, ?, ?, ?)`,
		e.EdgeID, e.UserID, e.SourceNodeID, e.TargetNodeID, string(raw))
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "put_knowledge_edge", "insert failed", err)
	}
	return nil
}

// GetKnowledgeEdges returns every knowledge edge recorded for userID.
func (s *Store) GetKnowledgeEdges(ctx context.Context, userID string) ([]model.KnowledgeEdge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_json FROM knowledge_edges WHERE user_id = ?`, userID)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("structured", "get_knowledge_edges", "query failed", err)
	}
	defer rows.Close()

	var out []model.KnowledgeEdge
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", "get_knowledge_edges", "scan failed", err)
		}
		var e model.KnowledgeEdge
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, newssparkerrors.NewStoreError("structured", "get_knowledge_edges", "decode failed", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteUser cascades across all five tables in a single transaction.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newssparkerrors.NewStoreError("structured", "delete_user", "begin transaction failed", err)
	}
	defer tx.Rollback()

	tables := []string{"knowledge_edges", "knowledge_nodes", "learned_corrections", "feedback", "users"}
	userCol := map[string]string{
		"knowledge_edges":      "user_id",
		"knowledge_nodes":      "user_id",
		"learned_corrections":  "user_id",
		"feedback":             "user_id",
		"users":                "user_id",
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t, userCol[t]), userID); err != nil {
			return newssparkerrors.NewStoreError("structured", "delete_user", "delete from "+t+" failed", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return newssparkerrors.NewStoreError("structured", "delete_user", "commit failed", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
