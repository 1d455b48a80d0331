// Package postgres provides a vector.Index backed by a pgvector-enabled
// PostgreSQL database exposing a match_documents function.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/vector"
)

const defaultFunction = "match_documents"

// Config holds configuration for the PostgreSQL index.
type Config struct {
	// ConnString is a PostgreSQL connection string or URI.
	ConnString string

	// Dimensions is the embedding length stored in the documents table.
	Dimensions int

	// Function is the SQL similarity function to call. Defaults to
	// match_documents(query_embedding vector, match_threshold float, match_count int).
	Function string
}

// Index calls the configured similarity function for every Match.
type Index struct {
	pool       *pgxpool.Pool
	dimensions int
	query      string
	logger     *zap.Logger
}

// NewIndex connects to PostgreSQL and verifies the connection.
func NewIndex(ctx context.Context, c Config, logger *zap.Logger) (*Index, error) {
	if c.ConnString == "" {
		return nil, fmt.Errorf("postgres connection string is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("postgres index embedding dimensions must be configured")
	}

	fn := c.Function
	if fn == "" {
		fn = defaultFunction
	}
	if !validIdentifier(fn) {
		return nil, fmt.Errorf("invalid similarity function name %q", fn)
	}

	pool, err := pgxpool.New(ctx, c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", vector.ErrConnection, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("postgres vector index initialized",
		zap.String("function", fn),
		zap.Int("dimensions", c.Dimensions),
	)

	return &Index{
		pool:       pool,
		dimensions: c.Dimensions,
		query:      fmt.Sprintf(`SELECT content, similarity FROM %s($1::vector, $2, $3)`, fn),
		logger:     logger,
	}, nil
}

// Match runs the similarity function. Threshold and limit are applied by the
// database.
func (i *Index) Match(ctx context.Context, embedding []float32, threshold float32, topK int) ([]vector.Result, error) {
	if err := vector.CheckDimensions(embedding, i.dimensions); err != nil {
		return nil, err
	}

	rows, err := i.pool.Query(ctx, i.query, FormatVector(embedding), threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("calling similarity function: %w", err)
	}
	defer rows.Close()

	var results []vector.Result
	for rows.Next() {
		var (
			content    string
			similarity float64
		)
		if err := rows.Scan(&content, &similarity); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		results = append(results, vector.Result{Content: content, Similarity: float32(similarity)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}

	i.logger.Debug("queried postgres vector index", zap.Int("results", len(results)))
	return results, nil
}

// Dimensions returns the configured embedding length.
func (i *Index) Dimensions() int {
	return i.dimensions
}

// Close closes the connection pool.
func (i *Index) Close() error {
	i.pool.Close()
	return nil
}

// FormatVector renders an embedding in pgvector's text input format.
func FormatVector(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 8)
	b.WriteByte('[')
	for k, f := range v {
		if k > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func validIdentifier(s string) bool {
	for _, r := range s {
		if r != '_' && r != '.' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return s != ""
}

var _ vector.Index = (*Index)(nil)
