// Package prompt renders the customer-support prompt shared by every
// generation provider.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Language selects the wording of prompts and canned replies.
type Language string

const (
	English    Language = "en"
	Vietnamese Language = "vi"
)

// DefaultContact is the support contact block appended to prompts.
const DefaultContact = `- Hotline: 1900 1234
- Email: support@enterprise.com
- Hours: 08:00 - 17:30 (Mon - Fri)`

type phrases struct {
	template  string
	noContext string
	apology   string
	header    string
	user      string
	assistant string
}

var catalog = map[Language]phrases{
	English: {
		template: `
[ROLE]
You are the virtual customer-support assistant of the company. Answer questions accurately, professionally and helpfully.

[KNOWLEDGE BASE]
{{.Context}}

[USER QUESTION]
{{.Question}}

[ANSWERING RULES]
1. Accuracy: prefer information from the knowledge base and answer from it when it is present.
2. Honesty: when the knowledge base has nothing relevant, you may help with general knowledge, say clearly that the information is not in the internal documentation, and suggest contacting support if needed.
3. Professional tone: polite, clear and concise. No emoji.
4. Limits: for requests you cannot fulfil (orders, account changes), direct the user to a support agent.

[SUPPORT CONTACT]
{{.Contact}}
`,
		noContext: "(No relevant documents were found in the system)",
		apology:   "The system is busy, please try again later.",
		header:    "[RECENT CONVERSATION]",
		user:      "User",
		assistant: "Assistant",
	},
	Vietnamese: {
		template: `
[VAI TRÒ]
Bạn là Trợ lý ảo hỗ trợ khách hàng của doanh nghiệp. Nhiệm vụ của bạn là trả lời câu hỏi một cách chính xác, chuyên nghiệp và hữu ích.

[CƠ SỞ TRI THỨC]
{{.Context}}

[CÂU HỎI CỦA NGƯỜI DÙNG]
{{.Question}}

[NGUYÊN TẮC TRẢ LỜI]
1. Chính xác: Ưu tiên sử dụng thông tin từ Cơ sở tri thức. Nếu có thông tin, trả lời dựa trên đó.
2. Trung thực: Nếu không tìm thấy thông tin trong hệ thống, có thể hỗ trợ với kiến thức chung, nói rõ "Thông tin này chưa có trong hệ thống tài liệu nội bộ" và đề xuất liên hệ bộ phận hỗ trợ nếu cần.
3. Chuyên nghiệp: Tiếng Việt, lịch sự, rõ ràng, ngắn gọn. Không sử dụng emoji.
4. Giới hạn: Với các yêu cầu vượt quá khả năng (đặt hàng, thay đổi thông tin tài khoản), hướng dẫn liên hệ nhân viên hỗ trợ.

[THÔNG TIN LIÊN HỆ HỖ TRỢ]
{{.Contact}}
`,
		noContext: "(Không tìm thấy tài liệu liên quan trong hệ thống)",
		apology:   "Hệ thống đang bận, vui lòng thử lại sau.",
		header:    "[LỊCH SỬ HỘI THOẠI GẦN ĐÂY]",
		user:      "Người dùng",
		assistant: "Trợ lý",
	},
}

// Builder renders chat prompts for one language.
type Builder struct {
	lang    Language
	contact string
	tmpl    *template.Template
}

// New creates a Builder. An empty contact uses DefaultContact.
func New(lang Language, contact string) (*Builder, error) {
	p, ok := catalog[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported prompt language %q (supported: %v)", lang, SupportedLanguages())
	}
	if contact == "" {
		contact = DefaultContact
	}

	tmpl, err := template.New(string(lang)).Parse(p.template)
	if err != nil {
		return nil, fmt.Errorf("parsing %s prompt template: %w", lang, err)
	}

	return &Builder{lang: lang, contact: contact, tmpl: tmpl}, nil
}

// Default returns the English builder with the default contact block.
func Default() *Builder {
	b, err := New(English, "")
	if err != nil {
		panic(err)
	}
	return b
}

// Chat renders the prompt for question with the knowledge/conversation context.
func (b *Builder) Chat(question, context string) string {
	if strings.TrimSpace(context) == "" {
		context = catalog[b.lang].noContext
	}

	var buf bytes.Buffer
	// Executing a parsed template with string fields cannot fail.
	_ = b.tmpl.Execute(&buf, struct {
		Context  string
		Question string
		Contact  string
	}{context, question, b.contact})
	return buf.String()
}

// Language returns the builder's language.
func (b *Builder) Language() Language {
	return b.lang
}

// Apology is the canned reply used when no provider could answer.
func Apology(lang Language) string {
	if p, ok := catalog[lang]; ok {
		return p.apology
	}
	return catalog[English].apology
}

// TranscriptLabels returns the header, user and assistant labels used when
// rendering conversation history in lang.
func TranscriptLabels(lang Language) (header, user, assistant string) {
	p, ok := catalog[lang]
	if !ok {
		p = catalog[English]
	}
	return p.header, p.user, p.assistant
}

// SupportedLanguages lists the available prompt languages.
func SupportedLanguages() []Language {
	return []Language{English, Vietnamese}
}
