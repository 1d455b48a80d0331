package mistral_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/pkg/llm"
	"github.com/papercomputeco/answerdesk/pkg/llm/provider/mistral"
)

// fakeMistral serves the OpenAI-compatible chat and embedding routes.
type fakeMistral struct {
	mu       sync.Mutex
	paths    []string
	auth     string
	model    string
	chat     string
	status   int
	embedDim int
}

func (f *fakeMistral) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.paths = append(f.paths, r.URL.Path)
	f.auth = r.Header.Get("Authorization")

	var req struct {
		Model string `json:"model"`
	}
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &req)
	f.model = req.Model

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
		return
	}

	switch r.URL.Path {
	case "/v1/chat/completions":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": f.chat},
				"finish_reason": "stop",
			}},
		})
	case "/v1/embeddings":
		vec := make([]float32, f.embedDim)
		for i := range vec {
			vec[i] = 0.5
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": vec}},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

var _ = Describe("Mistral Provider", func() {
	var (
		ctx    context.Context
		fake   *fakeMistral
		server *httptest.Server
		p      *mistral.Provider
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeMistral{chat: "  Shipping takes three days.  ", embedDim: 1024}
		server = httptest.NewServer(fake)

		var err error
		p, err = mistral.New(llm.Config{APIKey: "test-key", BaseURL: server.URL + "/v1"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an API key", func() {
		_, err := mistral.New(llm.Config{})
		Expect(err).To(MatchError(llm.ErrMissingAPIKey))
	})

	It("returns the trimmed completion", func() {
		answer, err := p.GenerateResponse(ctx, "How long is shipping?", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("Shipping takes three days."))
		Expect(fake.paths).To(ContainElement("/v1/chat/completions"))
		Expect(fake.auth).To(Equal("Bearer test-key"))
		Expect(fake.model).To(Equal("mistral-small-2506"))
	})

	It("treats an empty completion as a failure", func() {
		fake.chat = "   "
		_, err := p.GenerateResponse(ctx, "q", "")
		Expect(err).To(MatchError(llm.ErrEmptyResponse))
	})

	It("wraps API errors as provider errors", func() {
		fake.status = http.StatusInternalServerError
		_, err := p.GenerateResponse(ctx, "q", "")

		var perr *llm.Error
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Provider).To(Equal("mistral"))
	})

	It("embeds with mistral-embed", func() {
		vec, err := p.GenerateEmbedding(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(1024))
		Expect(fake.paths).To(ContainElement("/v1/embeddings"))
		Expect(fake.model).To(Equal("mistral-embed"))
	})
})
