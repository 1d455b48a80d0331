package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/conversation"
	testutils "github.com/papercomputeco/answerdesk/pkg/utils/test"
)

// clock is a mutable, goroutine-safe time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ = Describe("Store", func() {
	var (
		ctx      context.Context
		clk      *clock
		archiver *testutils.MockArchiver
		store    *conversation.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		clk = &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
		archiver = testutils.NewMockArchiver()

		var err error
		store, err = conversation.NewStore(conversation.Config{
			MaxExchanges: 10,
			TTL:          30 * time.Minute,
			Archiver:     archiver,
			Now:          clk.Now,
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close(ctx)).To(Succeed())
	})

	Describe("GetOrCreate", func() {
		It("starts an empty conversation for a new user", func() {
			snap := store.GetOrCreate(ctx, "u1")
			Expect(snap.UserID).To(Equal("u1"))
			Expect(snap.Turns).To(BeEmpty())
			Expect(snap.CreatedAt).To(Equal(clk.Now()))
			Expect(store.Active()).To(Equal(1))
		})

		It("returns the live conversation while it is fresh", func() {
			store.Append(ctx, "u1", "hi", "hello")
			clk.Advance(29 * time.Minute)

			snap := store.GetOrCreate(ctx, "u1")
			Expect(snap.Turns).To(HaveLen(2))
		})

		It("returns copies that do not alias the store", func() {
			store.Append(ctx, "u1", "hi", "hello")
			snap := store.GetOrCreate(ctx, "u1")
			snap.Turns[0].Content = "mutated"

			Expect(store.GetOrCreate(ctx, "u1").Turns[0].Content).To(Equal("hi"))
		})
	})

	Describe("Append", func() {
		It("records the user turn then the assistant turn", func() {
			store.Append(ctx, "u1", "what time do you open?", "We open at 9.")

			turns := store.GetOrCreate(ctx, "u1").Turns
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].Role).To(Equal(conversation.RoleUser))
			Expect(turns[0].Content).To(Equal("what time do you open?"))
			Expect(turns[1].Role).To(Equal(conversation.RoleAssistant))
			Expect(turns[1].Content).To(Equal("We open at 9."))
		})

		It("keeps at most the last ten exchanges", func() {
			for i := range 11 {
				store.Append(ctx, "u1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
			}

			turns := store.GetOrCreate(ctx, "u1").Turns
			Expect(turns).To(HaveLen(20))
			Expect(turns[0].Content).To(Equal("q1"))
			Expect(turns[19].Content).To(Equal("a10"))
		})

		It("refreshes last activity", func() {
			store.Append(ctx, "u1", "a", "b")
			clk.Advance(20 * time.Minute)
			store.Append(ctx, "u1", "c", "d")
			clk.Advance(20 * time.Minute)

			Expect(store.GetOrCreate(ctx, "u1").Turns).To(HaveLen(4))
		})

		It("keeps users isolated", func() {
			store.Append(ctx, "u1", "a", "b")
			store.Append(ctx, "u2", "c", "d")

			Expect(store.GetOrCreate(ctx, "u1").Turns[0].Content).To(Equal("a"))
			Expect(store.GetOrCreate(ctx, "u2").Turns[0].Content).To(Equal("c"))
		})

		It("serializes concurrent appends for the same user", func() {
			var wg sync.WaitGroup
			for i := range 8 {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					store.Append(ctx, "u1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
				}(i)
			}
			wg.Wait()

			turns := store.GetOrCreate(ctx, "u1").Turns
			Expect(turns).To(HaveLen(16))
			for i := 0; i < len(turns); i += 2 {
				Expect(turns[i].Role).To(Equal(conversation.RoleUser))
				Expect(turns[i+1].Role).To(Equal(conversation.RoleAssistant))
				Expect(turns[i+1].Content[1:]).To(Equal(turns[i].Content[1:]))
			}
		})
	})

	Describe("expiry", func() {
		It("archives an idle conversation and starts a fresh one", func() {
			store.Append(ctx, "u1", "q1", "a1")
			store.Append(ctx, "u1", "q2", "a2")
			started := clk.Now()
			clk.Advance(31 * time.Minute)

			snap := store.GetOrCreate(ctx, "u1")
			Expect(snap.Turns).To(BeEmpty())

			Eventually(archiver.Archives).Should(HaveLen(1))
			archived := archiver.Archives()[0]
			Expect(archived.UserID).To(Equal("u1"))
			Expect(archived.MessageCount).To(Equal(4))
			Expect(archived.StartedAt).To(Equal(started))
			Expect(archived.EndedAt).To(Equal(started))
		})

		It("archives before appending to a fresh conversation", func() {
			store.Append(ctx, "u1", "old", "old answer")
			clk.Advance(31 * time.Minute)
			store.Append(ctx, "u1", "new", "new answer")

			turns := store.GetOrCreate(ctx, "u1").Turns
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].Content).To(Equal("new"))
			Eventually(archiver.Archives).Should(HaveLen(1))
		})

		It("drops conversations with fewer than two turns without archiving", func() {
			store.GetOrCreate(ctx, "u1")
			clk.Advance(31 * time.Minute)

			Expect(store.Sweep(ctx)).To(Equal(1))
			Expect(store.Active()).To(Equal(0))
			Consistently(archiver.Archives, 100*time.Millisecond).Should(BeEmpty())
		})

		It("archives a conversation at most once under contention", func() {
			store.Append(ctx, "u1", "q", "a")
			clk.Advance(31 * time.Minute)

			var wg sync.WaitGroup
			for range 10 {
				wg.Add(2)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					store.GetOrCreate(ctx, "u1")
				}()
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					store.Sweep(ctx)
				}()
			}
			wg.Wait()

			Expect(store.Close(ctx)).To(Succeed())
			Expect(archiver.Archives()).To(HaveLen(1))
		})

		It("logs and swallows archival failures", func() {
			archiver.Err = errors.New("insert failed")
			store.Append(ctx, "u1", "q", "a")
			clk.Advance(31 * time.Minute)

			Expect(func() { store.Sweep(ctx) }).NotTo(Panic())
			Eventually(archiver.Calls).Should(Equal(1))
		})
	})

	Describe("Sweep", func() {
		It("evicts only idle conversations", func() {
			store.Append(ctx, "idle", "q", "a")
			clk.Advance(20 * time.Minute)
			store.Append(ctx, "busy", "q", "a")
			clk.Advance(11 * time.Minute)

			Expect(store.Sweep(ctx)).To(Equal(1))
			Expect(store.Active()).To(Equal(1))
			Eventually(archiver.Archives).Should(HaveLen(1))
			Expect(archiver.Archives()[0].UserID).To(Equal("idle"))
		})
	})

	Describe("Clear", func() {
		It("drops the conversation without archiving it", func() {
			store.Append(ctx, "u1", "q", "a")

			Expect(store.Clear("u1")).To(BeTrue())
			Expect(store.Active()).To(Equal(0))
			Expect(store.GetOrCreate(ctx, "u1").Turns).To(BeEmpty())

			Expect(store.Close(ctx)).To(Succeed())
			Expect(archiver.Archives()).To(BeEmpty())
		})

		It("reports unknown users", func() {
			Expect(store.Clear("nobody")).To(BeFalse())
		})
	})

	Describe("Close", func() {
		It("flushes every live conversation to the archiver", func() {
			store.Append(ctx, "u1", "q", "a")
			store.Append(ctx, "u2", "q", "a")
			store.GetOrCreate(ctx, "u3")

			Expect(store.Close(ctx)).To(Succeed())
			Expect(archiver.Archives()).To(HaveLen(2))
			Expect(store.Active()).To(Equal(0))
		})
	})

	Describe("FormatContext", func() {
		It("returns an empty string for no turns", func() {
			Expect(store.FormatContext(nil)).To(BeEmpty())
		})

		It("renders a labeled transcript", func() {
			store.Append(ctx, "u1", "hi", "hello")
			out := store.FormatContext(store.GetOrCreate(ctx, "u1").Turns)

			Expect(out).To(Equal("\n[RECENT CONVERSATION]\nUser: hi\nAssistant: hello\n"))
		})

		It("uses configured labels", func() {
			labels := conversation.Labels{Header: "[LỊCH SỬ HỘI THOẠI GẦN ĐÂY]", User: "Người dùng", Assistant: "Trợ lý"}
			out := conversation.FormatContext(labels, []conversation.Turn{
				{Role: conversation.RoleUser, Content: "xin chào"},
			})
			Expect(out).To(ContainSubstring("Người dùng: xin chào"))
		})
	})
})

var _ = Describe("Sweeper", func() {
	It("evicts idle conversations on its interval until stopped", func() {
		clk := &clock{now: time.Now()}
		archiver := testutils.NewMockArchiver()
		store, err := conversation.NewStore(conversation.Config{
			TTL:      time.Minute,
			Archiver: archiver,
			Now:      clk.Now,
		})
		Expect(err).NotTo(HaveOccurred())

		store.Append(context.Background(), "u1", "q", "a")
		clk.Advance(2 * time.Minute)

		sweeper := conversation.NewSweeper(store, 10*time.Millisecond, zap.NewNop())
		sweeper.Start()
		sweeper.Start()

		Eventually(store.Active).Should(Equal(0))
		Eventually(archiver.Archives).Should(HaveLen(1))

		sweeper.Stop()
		sweeper.Stop()
		Expect(store.Close(context.Background())).To(Succeed())
	})
})
