package qdrant

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/qdrant/go-client/qdrant"
)

var _ = Describe("Qdrant index", func() {
	Describe("NewIndex", func() {
		It("requires a host", func() {
			_, err := NewIndex(context.Background(), Config{Collection: "kb", Dimensions: 4}, nil)
			Expect(err).To(MatchError(ContainSubstring("host is required")))
		})

		It("requires a collection", func() {
			_, err := NewIndex(context.Background(), Config{Host: "localhost", Dimensions: 4}, nil)
			Expect(err).To(MatchError(ContainSubstring("collection is required")))
		})

		It("requires dimensions", func() {
			_, err := NewIndex(context.Background(), Config{Host: "localhost", Collection: "kb"}, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("PointID", func() {
		It("is deterministic per document ID", func() {
			Expect(PointID("faq-1")).To(Equal(PointID("faq-1")))
			Expect(PointID("faq-1")).NotTo(Equal(PointID("faq-2")))
		})
	})

	Describe("toResults", func() {
		It("reads content from the payload and keeps server ordering", func() {
			points := []*qdrant.ScoredPoint{
				{Score: 0.9, Payload: qdrant.NewValueMap(map[string]any{ContentKey: "first"})},
				{Score: 0.5, Payload: qdrant.NewValueMap(map[string]any{ContentKey: "second"})},
				{Score: 0.45},
			}

			results := toResults(points)
			Expect(results).To(HaveLen(3))
			Expect(results[0].Content).To(Equal("first"))
			Expect(results[0].Similarity).To(BeNumerically("~", 0.9, 0.0001))
			Expect(results[1].Content).To(Equal("second"))
			Expect(results[2].Content).To(BeEmpty())
		})
	})
})
