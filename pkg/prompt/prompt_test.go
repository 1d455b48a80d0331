package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/pkg/prompt"
)

var _ = Describe("Builder", func() {
	It("rejects unknown languages", func() {
		_, err := prompt.New("fr", "")
		Expect(err).To(HaveOccurred())
	})

	It("embeds the question, the context and the contact block", func() {
		b, err := prompt.New(prompt.English, "- Email: help@example.com")
		Expect(err).NotTo(HaveOccurred())

		out := b.Chat("When do you open?", "- We open at 9am.")
		Expect(out).To(ContainSubstring("When do you open?"))
		Expect(out).To(ContainSubstring("- We open at 9am."))
		Expect(out).To(ContainSubstring("help@example.com"))
	})

	It("uses the no-context marker when context is blank", func() {
		out := prompt.Default().Chat("hi", "  \n")
		Expect(out).To(ContainSubstring("No relevant documents were found"))
	})

	It("renders Vietnamese prompts", func() {
		b, err := prompt.New(prompt.Vietnamese, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Chat("xin chào", "")).To(ContainSubstring("Không tìm thấy tài liệu liên quan"))
		Expect(b.Language()).To(Equal(prompt.Vietnamese))
	})

	It("does not interpret template syntax in user input", func() {
		out := prompt.Default().Chat("{{.Contact}}", "")
		Expect(out).To(ContainSubstring("{{.Contact}}"))
	})
})

var _ = Describe("Apology", func() {
	It("is localized", func() {
		Expect(prompt.Apology(prompt.Vietnamese)).To(Equal("Hệ thống đang bận, vui lòng thử lại sau."))
		Expect(prompt.Apology(prompt.English)).To(Equal("The system is busy, please try again later."))
	})

	It("falls back to English", func() {
		Expect(prompt.Apology("xx")).To(Equal(prompt.Apology(prompt.English)))
	})
})

var _ = Describe("TranscriptLabels", func() {
	It("returns localized labels", func() {
		header, user, assistant := prompt.TranscriptLabels(prompt.Vietnamese)
		Expect(header).To(Equal("[LỊCH SỬ HỘI THOẠI GẦN ĐÂY]"))
		Expect(user).To(Equal("Người dùng"))
		Expect(assistant).To(Equal("Trợ lý"))
	})
})
