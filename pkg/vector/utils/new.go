// Package vectorutils builds a vector.Index from configuration.
package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/vector"
	"github.com/papercomputeco/answerdesk/pkg/vector/memory"
	"github.com/papercomputeco/answerdesk/pkg/vector/postgres"
	"github.com/papercomputeco/answerdesk/pkg/vector/qdrant"
	"github.com/papercomputeco/answerdesk/pkg/vector/sqlitevec"
)

type NewIndexOpts struct {
	// ProviderType is one of memory, postgres, qdrant or sqlite.
	ProviderType string

	// Target is the DSN, database path or host, depending on ProviderType.
	Target string

	Port       int
	APIKey     string
	Collection string
	Function   string
	Dimensions int
	Logger     *zap.Logger
}

func NewIndex(ctx context.Context, o *NewIndexOpts) (vector.Index, error) {
	switch o.ProviderType {
	case "memory", "":
		return memory.NewIndex(o.Dimensions), nil
	case "postgres":
		return postgres.NewIndex(ctx, postgres.Config{
			ConnString: o.Target,
			Dimensions: o.Dimensions,
			Function:   o.Function,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewIndex(ctx, qdrant.Config{
			Host:       o.Target,
			Port:       o.Port,
			APIKey:     o.APIKey,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "sqlite":
		return sqlitevec.NewIndex(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
