package retrieval_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/pkg/retrieval"
	testutils "github.com/papercomputeco/answerdesk/pkg/utils/test"
	"github.com/papercomputeco/answerdesk/pkg/vector"
	vectormemory "github.com/papercomputeco/answerdesk/pkg/vector/memory"
)

var _ = Describe("Client", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		index    *testutils.MockIndex
		client   *retrieval.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		index = testutils.NewMockIndex(3,
			vector.Result{Content: "Returns are free within 30 days.", Similarity: 0.9},
			vector.Result{Content: "Refunds take 5 business days.", Similarity: 0.7},
			vector.Result{Content: "Gift cards cannot be refunded.", Similarity: 0.5},
			vector.Result{Content: "Stores open at 9am.", Similarity: 0.45},
		)

		var err error
		client, err = retrieval.New(retrieval.Config{Embedder: embedder, Index: index})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires an embedder and an index", func() {
		_, err := retrieval.New(retrieval.Config{Index: index})
		Expect(err).To(HaveOccurred())
		_, err = retrieval.New(retrieval.Config{Embedder: embedder})
		Expect(err).To(HaveOccurred())
	})

	It("passes the threshold and default top-k to the index", func() {
		docs, err := client.Search(ctx, "refund policy?", 0.4)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(3))
		Expect(docs[0].Content).To(Equal("Returns are free within 30 days."))

		threshold, topK := index.Last()
		Expect(threshold).To(BeNumerically("==", 0.4))
		Expect(topK).To(Equal(retrieval.DefaultTopK))
	})

	It("wraps embedding failures in ErrRetrieval", func() {
		embedder.FailOn = "boom"
		_, err := client.Search(ctx, "boom", 0.4)
		Expect(err).To(MatchError(retrieval.ErrRetrieval))
		Expect(index.Matches()).To(Equal(0))
	})

	It("wraps index failures in ErrRetrieval", func() {
		index.Err = errors.New("connection refused")
		_, err := client.Search(ctx, "q", 0.4)
		Expect(err).To(MatchError(retrieval.ErrRetrieval))
	})

	It("surfaces a dimension mismatch as a retrieval failure", func() {
		embedder.Embeddings["wide"] = []float32{1, 2, 3, 4}
		_, err := client.Search(ctx, "wide", 0.4)
		Expect(err).To(MatchError(retrieval.ErrRetrieval))
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))
	})

	Context("against the in-memory index", func() {
		It("returns nothing above the threshold as an empty result", func() {
			mem := vectormemory.NewIndex(3)
			Expect(mem.Add(ctx, []vector.Document{
				{ID: "a", Content: "orthogonal", Embedding: []float32{0, 0, 1}},
			})).To(Succeed())

			embedder.Embeddings["q"] = []float32{1, 0, 0}
			c, err := retrieval.New(retrieval.Config{Embedder: embedder, Index: mem})
			Expect(err).NotTo(HaveOccurred())

			docs, err := c.Search(ctx, "q", 0.4)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})
	})
})

var _ = Describe("FormatContext", func() {
	It("is empty for no documents", func() {
		Expect(retrieval.FormatContext(nil)).To(BeEmpty())
	})

	It("renders one dash line per document in order", func() {
		out := retrieval.FormatContext([]retrieval.Document{
			{Content: "first", Similarity: 0.9},
			{Content: "second", Similarity: 0.5},
		})
		Expect(out).To(Equal("- first\n- second"))
	})
})
