package memory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/pkg/vector"
	"github.com/papercomputeco/answerdesk/pkg/vector/memory"
)

var _ = Describe("Index", func() {
	var (
		index *memory.Index
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		index = memory.NewIndex(3)
		Expect(index.Add(ctx, []vector.Document{
			{ID: "hours", Content: "We open 9am to 6pm.", Embedding: []float32{1, 0, 0}},
			{ID: "shipping", Content: "Shipping takes 3 days.", Embedding: []float32{0, 1, 0}},
			{ID: "mixed", Content: "Orders ship after opening.", Embedding: []float32{0.7, 0.7, 0}},
		})).To(Succeed())
	})

	It("orders matches by descending similarity", func() {
		results, err := index.Match(ctx, []float32{1, 0.1, 0}, 0, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		Expect(results[0].Content).To(Equal("We open 9am to 6pm."))
		Expect(results[1].Content).To(Equal("Orders ship after opening."))
	})

	It("drops matches below the threshold", func() {
		results, err := index.Match(ctx, []float32{1, 0, 0}, 0.5, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
	})

	It("limits results to topK", func() {
		results, err := index.Match(ctx, []float32{1, 1, 0}, 0, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Content).To(Equal("Orders ship after opening."))
	})

	It("returns nothing when no document reaches the threshold", func() {
		results, err := index.Match(ctx, []float32{0, 0, 1}, 0.4, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("orders equal similarities by document ID before truncating", func() {
		ties := memory.NewIndex(2)
		Expect(ties.Add(ctx, []vector.Document{
			{ID: "d", Content: "delta", Embedding: []float32{1, 0}},
			{ID: "b", Content: "bravo", Embedding: []float32{1, 0}},
			{ID: "c", Content: "charlie", Embedding: []float32{1, 0}},
			{ID: "a", Content: "alpha", Embedding: []float32{1, 0}},
		})).To(Succeed())

		for range 20 {
			results, err := ties.Match(ctx, []float32{1, 0}, 0.5, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Content).To(Equal("alpha"))
			Expect(results[1].Content).To(Equal("bravo"))
		}
	})

	It("rejects embeddings of the wrong length", func() {
		_, err := index.Match(ctx, []float32{1, 0}, 0, 3)
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))
	})
})
