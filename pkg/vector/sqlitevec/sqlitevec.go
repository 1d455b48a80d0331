// Package sqlitevec provides a SQLite-backed vector.Index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/vector"
)

// Index implements vector.Index using SQLite with a vec0 virtual table.
type Index struct {
	db         *sql.DB
	dimensions int
	logger     *zap.Logger
}

// Config holds configuration for the sqlite-vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions int
}

// NewIndex opens the database and creates the knowledge tables.
func NewIndex(c Config, logger *zap.Logger) (*Index, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if c.Dimensions <= 0 {
		return nil, errors.New("sqlite-vec embedding dimensions must be configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// every ":memory:" connection is its own database
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 tables are keyed by integer rowid, so snippet text and the string
	// document ID live in a side table sharing that rowid.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS knowledge_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS knowledge_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec index initialized",
		zap.String("db_path", c.DBPath),
		zap.Int("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Index{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB format
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Add stores documents. A document with an existing ID is replaced.
func (i *Index) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if err := vector.CheckDimensions(doc.Embedding, i.dimensions); err != nil {
			return fmt.Errorf("doc %s: %w", doc.ID, err)
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		embBlob := serializeFloat32(doc.Embedding)

		var rowID int64
		err := tx.QueryRowContext(ctx,
			`SELECT rowid FROM knowledge_documents WHERE doc_id = ?`, doc.ID,
		).Scan(&rowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE knowledge_documents SET content = ? WHERE rowid = ?`,
				doc.Content, rowID,
			); err != nil {
				return fmt.Errorf("updating document %s: %w", doc.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM knowledge_embeddings WHERE rowid = ?`, rowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				`INSERT INTO knowledge_documents(doc_id, content) VALUES (?, ?)`,
				doc.ID, doc.Content,
			)
			if err != nil {
				return fmt.Errorf("inserting document %s: %w", doc.ID, err)
			}
			rowID, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing document %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO knowledge_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, embBlob,
		); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	i.logger.Debug("added documents to sqlite-vec", zap.Int("count", len(docs)))
	return nil
}

// Match runs a KNN query for topK neighbours and keeps those whose
// similarity, 1/(1+distance), reaches threshold.
func (i *Index) Match(ctx context.Context, embedding []float32, threshold float32, topK int) ([]vector.Result, error) {
	if err := vector.CheckDimensions(embedding, i.dimensions); err != nil {
		return nil, err
	}

	rows, err := i.db.QueryContext(ctx, `
		WITH knn AS (
			SELECT rowid, distance
			FROM knowledge_embeddings
			WHERE embedding MATCH ?
				AND k = ?
		)
		SELECT d.content, 1.0 / (1.0 + knn.distance) AS similarity
		FROM knn
		INNER JOIN knowledge_documents d ON d.rowid = knn.rowid
		WHERE 1.0 / (1.0 + knn.distance) >= ?
		ORDER BY knn.distance
	`, serializeFloat32(embedding), topK, threshold)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.Result
	for rows.Next() {
		var (
			content    string
			similarity float64
		)
		if err := rows.Scan(&content, &similarity); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		results = append(results, vector.Result{Content: content, Similarity: float32(similarity)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	i.logger.Debug("queried sqlite-vec", zap.Int("results", len(results)))
	return results, nil
}

// Dimensions returns the configured embedding length.
func (i *Index) Dimensions() int {
	return i.dimensions
}

// Close releases resources held by the index.
func (i *Index) Close() error {
	return i.db.Close()
}

var (
	_ vector.Index  = (*Index)(nil)
	_ vector.Writer = (*Index)(nil)
)
