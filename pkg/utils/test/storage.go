package testutils

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/pkg/conversation"
	"github.com/papercomputeco/answerdesk/pkg/storage"
)

// DescribeStorageDriver registers the behaviour every storage.Driver must
// share. newDriver is called before each spec and must return an empty store.
func DescribeStorageDriver(newDriver func() storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("chat logs", func() {
		It("returns recent logs newest first", func() {
			base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			for i, q := range []string{"first", "second", "third"} {
				Expect(driver.InsertChatLog(ctx, storage.ChatLog{
					SessionID: "s1",
					UserID:    "u1",
					Question:  q,
					Answer:    "answer " + q,
					Provider:  "gemini",
					LatencyMs: 100,
					Layer:     2,
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				})).To(Succeed())
			}

			logs, err := driver.RecentChatLogs(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(HaveLen(2))
			Expect(logs[0].Question).To(Equal("third"))
			Expect(logs[1].Question).To(Equal("second"))
			Expect(logs[0].Answer).To(Equal("answer third"))
			Expect(logs[0].SessionID).To(Equal("s1"))
			Expect(logs[0].Layer).To(Equal(2))
		})

		It("aggregates layers, providers and latency", func() {
			for _, l := range []storage.ChatLog{
				{Question: "a", Answer: "x", Provider: "cache", Layer: 1, LatencyMs: 10},
				{Question: "b", Answer: "x", Provider: "gemini", Layer: 2, LatencyMs: 200},
				{Question: "c", Answer: "x", Provider: "mistral", Layer: 3, LatencyMs: 300},
				{Question: "d", Answer: "x", Provider: "gemini", Layer: 2, LatencyMs: 290},
			} {
				Expect(driver.InsertChatLog(ctx, l)).To(Succeed())
			}

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.ChatLogs).To(BeNumerically("==", 4))
			Expect(stats.Layers).To(Equal(map[int]int64{1: 1, 2: 2, 3: 1}))
			Expect(stats.Providers).To(Equal(map[string]int64{"cache": 1, "gemini": 2, "mistral": 1}))
			Expect(stats.AverageLatencyMs).To(BeNumerically("~", 200, 0.001))
		})

		It("reports empty stats for an empty store", func() {
			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.ChatLogs).To(BeZero())
			Expect(stats.AverageLatencyMs).To(BeZero())
			Expect(stats.Layers).To(BeEmpty())
		})
	})

	Describe("sessions", func() {
		It("creates and reads back a session", func() {
			created, err := driver.CreateSession(ctx, "u1", map[string]any{"channel": "web"})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(BeEmpty())

			got, err := driver.GetSession(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UserID).To(Equal("u1"))
			Expect(got.Metadata).To(HaveKeyWithValue("channel", "web"))
		})

		It("gives every session a distinct id", func() {
			a, err := driver.CreateSession(ctx, "u1", nil)
			Expect(err).NotTo(HaveOccurred())
			b, err := driver.CreateSession(ctx, "u1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.ID).NotTo(Equal(b.ID))
		})

		It("returns NotFoundError for unknown ids", func() {
			_, err := driver.GetSession(ctx, "00000000-0000-0000-0000-000000000000")
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})
	})

	Describe("conversation archives", func() {
		It("stores archives per user in order", func() {
			start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
			turns := []conversation.Turn{
				{Role: conversation.RoleUser, Content: "hi", Timestamp: start},
				{Role: conversation.RoleAssistant, Content: "hello", Timestamp: start.Add(time.Second)},
			}

			Expect(driver.ArchiveConversation(ctx, conversation.Archive{
				UserID: "u1", Turns: turns, StartedAt: start, EndedAt: start.Add(time.Minute), MessageCount: 2,
			})).To(Succeed())
			Expect(driver.ArchiveConversation(ctx, conversation.Archive{
				UserID: "u2", Turns: turns, StartedAt: start, EndedAt: start.Add(time.Minute), MessageCount: 2,
			})).To(Succeed())

			archives, err := driver.Archives(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(archives).To(HaveLen(1))
			Expect(archives[0].MessageCount).To(Equal(2))
			Expect(archives[0].Turns).To(HaveLen(2))
			Expect(archives[0].Turns[0].Content).To(Equal("hi"))
			Expect(archives[0].Turns[1].Role).To(Equal(conversation.RoleAssistant))
			Expect(archives[0].StartedAt.Equal(start)).To(BeTrue())
		})
	})
}
