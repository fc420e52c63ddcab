package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"gitlabanalyzer/logger"
	"gitlabanalyzer/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Collections of the document store
const (
	CollectionUsers         = "users"
	CollectionProjects      = "projects"
	CollectionMergeRequests = "merge_requests"
	CollectionCommits       = "commits"
	CollectionCodeDiffs     = "code_diffs"
	CollectionComments      = "comments"
	CollectionMembers       = "members"
	CollectionIssues        = "issues"
)

var collections = map[string]struct{}{
	CollectionUsers:         {},
	CollectionProjects:      {},
	CollectionMergeRequests: {},
	CollectionCommits:       {},
	CollectionCodeDiffs:     {},
	CollectionComments:      {},
	CollectionMembers:       {},
	CollectionIssues:        {},
}

const uniqueViolation = "23505"

// Entry is a document together with its primary key.
type Entry struct {
	ID       string
	Document models.Document
}

// EncodeKey encodes a single or composite primary key. Composite keys are
// encoded as a JSON array of their parts, in order.
func EncodeKey(parts ...any) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: empty key", ErrInvalidInput)
	}

	var (
		b   []byte
		err error
	)
	if len(parts) == 1 {
		b, err = json.Marshal(parts[0])
	} else {
		b, err = json.Marshal(parts)
	}
	if err != nil {
		return "", fmt.Errorf("%w: key: %v", ErrInvalidInput, err)
	}
	return string(b), nil
}

func checkCollection(collection string) error {
	if _, ok := collections[collection]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return nil
}

func insertQuery(collection string) string {
	return fmt.Sprintf("INSERT INTO %s (id, document) VALUES ($1, $2::jsonb)", collection)
}

func isDuplicate(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// InsertOne inserts a document. A document whose key already exists is not
// written and reported as false without an error.
func (db *DB) InsertOne(ctx context.Context, collection string, entry Entry) (bool, error) {
	if err := checkCollection(collection); err != nil {
		return false, err
	}
	if entry.ID == "" {
		return false, fmt.Errorf("%w: empty document id", ErrInvalidInput)
	}

	body, err := json.Marshal(entry.Document)
	if err != nil {
		return false, fmt.Errorf("%w: document: %v", ErrInvalidInput, err)
	}

	stmt, err := db.getStmt(ctx, insertQuery(collection))
	if err != nil {
		return false, err
	}

	if _, err := stmt.ExecContext(ctx, entry.ID, string(body)); err != nil {
		if isDuplicate(err) {
			logger.Warn("Duplicate insert skipped",
				zap.String("collection", collection),
				zap.String("id", entry.ID))
			return false, nil
		}
		return false, fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return true, nil
}

// InsertMany inserts all documents in one transaction. If any key already exists
// nothing is written and false is returned without an error.
func (db *DB) InsertMany(ctx context.Context, collection string, entries []Entry) (bool, error) {
	if err := checkCollection(collection); err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return true, nil
	}

	bodies := make([]string, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return false, fmt.Errorf("%w: empty document id at %d", ErrInvalidInput, i)
		}
		b, err := json.Marshal(e.Document)
		if err != nil {
			return false, fmt.Errorf("%w: document %s: %v", ErrInvalidInput, e.ID, err)
		}
		bodies[i] = string(b)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, insertQuery(collection))
	if err != nil {
		return false, fmt.Errorf("failed to prepare insert into %s: %w", collection, err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, bodies[i]); err != nil {
			if isDuplicate(err) {
				logger.Warn("Duplicate in batch, batch rejected",
					zap.String("collection", collection),
					zap.String("id", e.ID),
					zap.Int("batch_size", len(entries)))
				return false, nil
			}
			return false, fmt.Errorf("failed to insert %s into %s: %w", e.ID, collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	safeLogInfo("Batch inserted", zap.String("collection", collection), zap.Int("count", len(entries)))
	return true, nil
}

// FindOne returns the document stored under id.
func (db *DB) FindOne(ctx context.Context, collection, id string) (models.Document, bool, error) {
	if err := checkCollection(collection); err != nil {
		return nil, false, err
	}

	var body []byte
	query := fmt.Sprintf("SELECT document FROM %s WHERE id = $1", collection)
	if err := db.conn.GetContext(ctx, &body, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s from %s: %w", id, collection, err)
	}

	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s from %s: %w", id, collection, err)
	}
	return doc, true, nil
}

// ListCollections returns the names of the collection tables.
func (db *DB) ListCollections(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
			AND table_type = 'BASE TABLE'
			AND table_name <> 'schema_migrations'
		ORDER BY table_name
	`

	var names []string
	if err := db.conn.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}
