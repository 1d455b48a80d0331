package cache_test

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/cache"
	"github.com/papercomputeco/answerdesk/pkg/cache/memory"
)

// brokenBackend fails every call.
type brokenBackend struct {
	gets int
	sets int
}

func (b *brokenBackend) Get(context.Context, string) (string, bool, error) {
	b.gets++
	return "", false, cache.ErrBackend
}

func (b *brokenBackend) Set(context.Context, string, string, time.Duration) error {
	b.sets++
	return errors.New("connection refused")
}

func (b *brokenBackend) Close() error { return nil }

// slowBackend blocks until the context is done.
type slowBackend struct{}

func (slowBackend) Get(ctx context.Context, _ string) (string, bool, error) {
	<-ctx.Done()
	return "", false, ctx.Err()
}

func (slowBackend) Set(ctx context.Context, _, _ string, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func (slowBackend) Close() error { return nil }

var _ = Describe("Key", func() {
	It("normalizes case and surrounding whitespace", func() {
		Expect(cache.Key("  What are your Hours? ")).To(Equal(cache.Key("what are your hours?")))
	})

	It("is the hex sha256 of the question under the chat namespace", func() {
		Expect(cache.Key("hello")).To(Equal("chat:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"))
	})

	It("has a bounded length regardless of the question length", func() {
		short := cache.Key("hi")
		long := cache.Key(strings.Repeat("long question ", 500))
		Expect(long).To(HavePrefix("chat:"))
		Expect(len(long)).To(Equal(len("chat:") + 64))
		Expect(len(short)).To(Equal(len(long)))
	})

	It("distinguishes long questions that share a prefix", func() {
		prefix := strings.Repeat("what are the admission requirements for ", 2)
		Expect(cache.Key(prefix + "computer science?")).NotTo(Equal(cache.Key(prefix + "medicine?")))
	})

	It("distinguishes different questions", func() {
		Expect(cache.Key("opening hours")).NotTo(Equal(cache.Key("shipping cost")))
	})
})

var _ = Describe("Layer", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("requires a backend", func() {
		_, err := cache.New(cache.Config{})
		Expect(err).To(HaveOccurred())
	})

	Context("with an in-memory backend", func() {
		var (
			now     time.Time
			backend *memory.Backend
			layer   *cache.Layer
		)

		BeforeEach(func() {
			now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
			backend = memory.NewBackend().WithClock(func() time.Time { return now })

			var err error
			layer, err = cache.New(cache.Config{Backend: backend, Logger: zap.NewNop()})
			Expect(err).NotTo(HaveOccurred())
		})

		It("misses on an empty cache", func() {
			_, ok := layer.Get(ctx, cache.Key("q"))
			Expect(ok).To(BeFalse())
		})

		It("returns a value set within its ttl", func() {
			layer.Set(ctx, "k", "v", 30*time.Minute)
			now = now.Add(29 * time.Minute)

			value, ok := layer.Get(ctx, "k")
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal("v"))
		})

		It("misses once the ttl has elapsed", func() {
			layer.Set(ctx, "k", "v", 30*time.Minute)
			now = now.Add(30 * time.Minute)

			_, ok := layer.Get(ctx, "k")
			Expect(ok).To(BeFalse())
		})

		It("overwrites an existing entry", func() {
			layer.Set(ctx, "k", "old", time.Minute)
			layer.Set(ctx, "k", "new", time.Minute)

			value, ok := layer.Get(ctx, "k")
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal("new"))
		})

		It("purges expired entries", func() {
			layer.Set(ctx, "a", "1", time.Minute)
			layer.Set(ctx, "b", "2", time.Hour)
			now = now.Add(2 * time.Minute)

			Expect(backend.Purge()).To(Equal(1))
			Expect(backend.Len()).To(Equal(1))
		})

		It("purges expired entries through the layer", func() {
			layer.Set(ctx, "a", "1", time.Minute)
			layer.Set(ctx, "b", "2", time.Hour)
			now = now.Add(2 * time.Minute)

			Expect(layer.Purge()).To(Equal(1))
			Expect(backend.Len()).To(Equal(1))
		})
	})

	Context("with a failing backend", func() {
		It("reports a miss instead of an error", func() {
			backend := &brokenBackend{}
			layer, err := cache.New(cache.Config{Backend: backend})
			Expect(err).NotTo(HaveOccurred())

			_, ok := layer.Get(ctx, "k")
			Expect(ok).To(BeFalse())
			Expect(backend.gets).To(Equal(1))
		})

		It("swallows write failures", func() {
			backend := &brokenBackend{}
			layer, err := cache.New(cache.Config{Backend: backend})
			Expect(err).NotTo(HaveOccurred())

			Expect(func() { layer.Set(ctx, "k", "v", time.Minute) }).NotTo(Panic())
			Expect(backend.sets).To(Equal(1))
		})
	})

	Context("with a hanging backend", func() {
		It("gives up after the operation timeout", func() {
			layer, err := cache.New(cache.Config{
				Backend:   slowBackend{},
				OpTimeout: 20 * time.Millisecond,
			})
			Expect(err).NotTo(HaveOccurred())

			start := time.Now()
			_, ok := layer.Get(ctx, "k")
			Expect(ok).To(BeFalse())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		})
	})
})
