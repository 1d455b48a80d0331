// Package qdrant provides a vector.Index backed by a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/vector"
)

const (
	defaultPort = 6334

	// ContentKey is the payload field holding snippet text.
	ContentKey = "content"
)

// Config holds configuration for the Qdrant index.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int
}

// Index queries a single Qdrant collection using cosine distance.
type Index struct {
	client     *qdrant.Client
	collection string
	dimensions int
	logger     *zap.Logger
}

// NewIndex connects to Qdrant and creates the collection if it is missing.
func NewIndex(ctx context.Context, c Config, logger *zap.Logger) (*Index, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant index embedding dimensions must be configured")
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   c.Port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, c.Collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection: %w", vector.ErrConnection, err)
	}
	if !exists {
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: c.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %s: %w", c.Collection, err)
		}
		logger.Info("created qdrant collection", zap.String("collection", c.Collection))
	}

	return &Index{
		client:     client,
		collection: c.Collection,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// Match queries the collection with a server-side score threshold and limit.
func (i *Index) Match(ctx context.Context, embedding []float32, threshold float32, topK int) ([]vector.Result, error) {
	if err := vector.CheckDimensions(embedding, i.dimensions); err != nil {
		return nil, err
	}

	points, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(embedding...),
		ScoreThreshold: qdrant.PtrOf(threshold),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayloadInclude(ContentKey),
	})
	if err != nil {
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	results := toResults(points)
	i.logger.Debug("queried qdrant", zap.Int("results", len(results)))
	return results, nil
}

// Add upserts documents. IDs are mapped onto deterministic UUIDs.
func (i *Index) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, d := range docs {
		if err := vector.CheckDimensions(d.Embedding, i.dimensions); err != nil {
			return err
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(d.ID)),
			Vectors: qdrant.NewVectors(d.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{ContentKey: d.Content, "doc_id": d.ID}),
		})
	}

	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

// Dimensions returns the configured embedding length.
func (i *Index) Dimensions() int {
	return i.dimensions
}

// Close closes the gRPC connection.
func (i *Index) Close() error {
	return i.client.Close()
}

// PointID maps an arbitrary document ID onto the UUID space Qdrant accepts.
func PointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String()
}

func toResults(points []*qdrant.ScoredPoint) []vector.Result {
	results := make([]vector.Result, 0, len(points))
	for _, p := range points {
		content := ""
		if v, ok := p.GetPayload()[ContentKey]; ok {
			content = v.GetStringValue()
		}
		results = append(results, vector.Result{Content: content, Similarity: p.GetScore()})
	}
	return results
}

var (
	_ vector.Index  = (*Index)(nil)
	_ vector.Writer = (*Index)(nil)
)
