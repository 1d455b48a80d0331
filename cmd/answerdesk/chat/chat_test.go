package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/api"
	"github.com/papercomputeco/answerdesk/pkg/dotdir"
)

type fakeServer struct {
	mu       sync.Mutex
	requests []api.ChatRequest
	deletes  []string
	fail     bool
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/chat":
		if f.fail {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "question is required"})
			return
		}
		var req api.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.requests = append(f.requests, req)
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = "session-" + string(rune('a'+len(f.requests)-1))
		}
		_ = json.NewEncoder(w).Encode(api.ChatResponse{SessionID: sessionID, Answer: "echo: " + req.Question})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/conversations/"):
		f.deletes = append(f.deletes, strings.TrimPrefix(r.URL.Path, "/api/conversations/"))
		_, _ = w.Write([]byte(`{"cleared":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

var _ = Describe("chat REPL", func() {
	var (
		fake      *fakeServer
		srv       *httptest.Server
		configDir string
		out       *bytes.Buffer
	)

	BeforeEach(func() {
		fake = &fakeServer{}
		srv = httptest.NewServer(fake)
		configDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		srv.Close()
	})

	newCommander := func(input string) *chatCommander {
		return &chatCommander{
			apiTarget: srv.URL,
			configDir: configDir,
			raw:       true,
			in:        strings.NewReader(input),
			out:       out,
			client:    srv.Client(),
			dotdir:    dotdir.NewManager(),
		}
	}

	It("sends each line and carries the assigned session forward", func() {
		Expect(newCommander("hello\nand again\n/exit\n").run(context.Background())).To(Succeed())

		Expect(fake.requests).To(HaveLen(2))
		Expect(fake.requests[0].SessionID).To(BeEmpty())
		Expect(fake.requests[1].SessionID).To(Equal("session-a"))
		Expect(fake.requests[0].UserID).To(Equal(fake.requests[1].UserID))
		Expect(out.String()).To(ContainSubstring("echo: hello"))
		Expect(out.String()).To(ContainSubstring("echo: and again"))
	})

	It("saves the session and resumes it on the next run", func() {
		Expect(newCommander("hello\n").run(context.Background())).To(Succeed())

		saved, err := dotdir.NewManager().LoadChatSession(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved).NotTo(BeNil())
		Expect(saved.SessionID).To(Equal("session-a"))

		Expect(newCommander("resume\n").run(context.Background())).To(Succeed())
		Expect(fake.requests[1].UserID).To(Equal(saved.UserID))
		Expect(fake.requests[1].SessionID).To(Equal("session-a"))
		Expect(out.String()).To(ContainSubstring("Resuming as"))
	})

	It("starts over when --new is given", func() {
		Expect(newCommander("hello\n").run(context.Background())).To(Succeed())

		c := newCommander("hi\n")
		c.fresh = true
		Expect(c.run(context.Background())).To(Succeed())
		Expect(fake.requests[1].UserID).NotTo(Equal(fake.requests[0].UserID))
		Expect(fake.requests[1].SessionID).To(BeEmpty())
	})

	It("clears the server conversation on /reset", func() {
		Expect(newCommander("hello\n/reset\nagain\n").run(context.Background())).To(Succeed())

		Expect(fake.deletes).To(ConsistOf(fake.requests[0].UserID))
		Expect(fake.requests[1].SessionID).To(BeEmpty())
	})

	It("reports server errors and keeps reading", func() {
		fake.fail = true
		Expect(newCommander("hello\n").run(context.Background())).To(Succeed())

		Expect(out.String()).To(ContainSubstring("server returned status 400: question is required"))
	})
})
