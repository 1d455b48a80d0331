package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/vector"
	"github.com/papercomputeco/answerdesk/pkg/vector/postgres"
)

var _ = Describe("FormatVector", func() {
	It("renders pgvector text input", func() {
		Expect(postgres.FormatVector([]float32{0.5, -1, 2.25})).To(Equal("[0.5,-1,2.25]"))
	})

	It("renders an empty vector", func() {
		Expect(postgres.FormatVector(nil)).To(Equal("[]"))
	})
})

var _ = Describe("NewIndex", func() {
	It("requires a connection string", func() {
		_, err := postgres.NewIndex(context.Background(), postgres.Config{Dimensions: 768}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("requires dimensions", func() {
		_, err := postgres.NewIndex(context.Background(), postgres.Config{ConnString: "postgres://localhost/db"}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("rejects unsafe function names", func() {
		_, err := postgres.NewIndex(context.Background(), postgres.Config{
			ConnString: "postgres://localhost/db",
			Dimensions: 768,
			Function:   "match_documents; drop table documents",
		}, zap.NewNop())
		Expect(err).To(MatchError(ContainSubstring("invalid similarity function name")))
	})

	It("reports unreachable servers as connection errors", func() {
		_, err := postgres.NewIndex(context.Background(), postgres.Config{
			ConnString: "host=127.0.0.1 port=1 user=bad dbname=bad sslmode=disable connect_timeout=1",
			Dimensions: 768,
		}, zap.NewNop())
		Expect(err).To(MatchError(vector.ErrConnection))
	})
})

var _ = Describe("Index", func() {
	It("matches against a live database", func() {
		dsn := os.Getenv("ANSWERDESK_TEST_POSTGRES_DSN")
		if dsn == "" {
			Skip("ANSWERDESK_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
		}

		ctx := context.Background()
		index, err := postgres.NewIndex(ctx, postgres.Config{ConnString: dsn, Dimensions: 768}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer index.Close()

		_, err = index.Match(ctx, make([]float32, 3), 0.4, 3)
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))
	})
})
