package askcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/pkg/config"
)

var _ = Describe("ask", func() {
	var srv *httptest.Server

	BeforeEach(func() {
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/api/generate":
				_ = json.NewEncoder(w).Encode(map[string]any{"response": "We open at 8.", "done": true})
			case "/api/embed":
				_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1, 0}}})
			}
		}))
	})

	AfterEach(func() {
		srv.Close()
	})

	newCommander := func(out *bytes.Buffer) *askCommander {
		cfg := config.NewDefaultConfig()
		cfg.LLM = config.LLMConfig{Primary: "ollama", Fallback: "ollama", Embedding: "ollama", Timeout: "5s"}
		cfg.Providers.Ollama.BaseURL = srv.URL
		cfg.Retrieval.Dimensions = 2
		cfg.Storage.Provider = "inmemory"
		return &askCommander{userID: "cli", raw: true, cfg: cfg, out: out}
	}

	It("prints the answer", func() {
		var out bytes.Buffer
		Expect(newCommander(&out).run(context.Background(), "When do you open?")).To(Succeed())
		Expect(out.String()).To(Equal("We open at 8.\n"))
	})

	It("rejects a blank question", func() {
		var out bytes.Buffer
		Expect(newCommander(&out).run(context.Background(), "   ")).To(MatchError("question is required"))
	})

	It("fails when the service cannot be built", func() {
		var out bytes.Buffer
		c := newCommander(&out)
		c.cfg.Cache.Provider = "memcached"
		Expect(c.run(context.Background(), "hi")).To(MatchError(ContainSubstring("unsupported cache provider")))
	})
})
