package router_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/pkg/llm"
	"github.com/papercomputeco/answerdesk/pkg/llm/router"
	testutils "github.com/papercomputeco/answerdesk/pkg/utils/test"
)

var _ = Describe("Router", func() {
	var (
		ctx       context.Context
		primary   *testutils.MockProvider
		fallback  *testutils.MockProvider
		providers map[string]llm.Provider
		cfg       router.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		primary = testutils.NewMockProvider("gemini", "primary answer")
		fallback = testutils.NewMockProvider("mistral", "fallback answer")
		providers = map[string]llm.Provider{
			"gemini":  primary,
			"mistral": fallback,
		}
		cfg = router.Config{Primary: "gemini", Fallback: "mistral", Embedding: "mistral"}
	})

	Describe("New", func() {
		It("fails when a configured provider is not registered", func() {
			cfg.Fallback = "onemin"
			_, err := router.New(cfg, providers)
			Expect(err).To(MatchError(router.ErrUnknownProvider))
			Expect(err.Error()).To(ContainSubstring("onemin"))
		})

		It("fails when the embedding provider is missing", func() {
			cfg.Embedding = ""
			_, err := router.New(cfg, providers)
			Expect(err).To(MatchError(router.ErrUnknownProvider))
		})
	})

	Describe("Generate", func() {
		var r *router.Router

		JustBeforeEach(func() {
			var err error
			r, err = router.New(cfg, providers)
			Expect(err).NotTo(HaveOccurred())
		})

		It("uses the primary when it succeeds", func() {
			answer, name, err := r.Generate(ctx, "q", "ctx")
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("primary answer"))
			Expect(name).To(Equal("gemini"))
			Expect(fallback.Calls()).To(Equal(0))
		})

		It("falls back with identical arguments when the primary fails", func() {
			primary.Err = errors.New("status 503")

			answer, name, err := r.Generate(ctx, "q", "the context")
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("fallback answer"))
			Expect(name).To(Equal("mistral"))
			Expect(fallback.Contexts()).To(Equal([]string{"the context"}))
			Expect(primary.Contexts()).To(Equal([]string{"the context"}))
		})

		It("treats an empty primary answer as a failure", func() {
			primary.Answer = ""

			_, name, err := r.Generate(ctx, "q", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("mistral"))
		})

		Context("when the primary exceeds the timeout", func() {
			BeforeEach(func() {
				cfg.Timeout = 20 * time.Millisecond
				primary.Delay = time.Second
			})

			It("falls back", func() {
				_, name, err := r.Generate(ctx, "q", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("mistral"))
			})
		})

		It("returns a GenerationError when both fail", func() {
			primary.Err = errors.New("primary down")
			fallback.Err = errors.New("fallback down")

			answer, name, err := r.Generate(ctx, "q", "")
			Expect(answer).To(BeEmpty())
			Expect(name).To(BeEmpty())
			Expect(err).To(MatchError(router.ErrAllProvidersFailed))

			var genErr *router.GenerationError
			Expect(errors.As(err, &genErr)).To(BeTrue())
			Expect(genErr.Primary).To(MatchError(ContainSubstring("primary down")))
			Expect(genErr.Fallback).To(MatchError(ContainSubstring("fallback down")))

			var perr *llm.Error
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Provider).To(Equal("gemini"))
		})
	})

	Describe("Embed", func() {
		It("routes to the embedding provider", func() {
			fallback.Embedding = []float32{1, 2}
			primary.EmbedErr = errors.New("should not be called")

			r, err := router.New(cfg, providers)
			Expect(err).NotTo(HaveOccurred())

			vec, err := r.Embed(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(vec).To(Equal([]float32{1, 2}))
		})
	})
})
