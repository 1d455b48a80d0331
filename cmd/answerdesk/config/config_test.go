package configcmder_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/answerdesk/cmd/answerdesk/config"
	"github.com/papercomputeco/answerdesk/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		subcommands := []string{}
		for _, sub := range cmd.Commands() {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir = GinkgoT().TempDir()
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// A local .answerdesk dir so the manager picks it up
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".answerdesk"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
	})

	execute := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	loadConfig := func() *config.Config {
		cfger, err := config.NewConfiger(filepath.Join(tmpDir, ".answerdesk"))
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return cfg
	}

	Describe("set subcommand", func() {
		It("sets a config value and writes config.toml", func() {
			Expect(execute("set", "llm.primary", "ollama")).To(Succeed())

			_, err := os.Stat(filepath.Join(tmpDir, ".answerdesk", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(loadConfig().LLM.Primary).To(Equal("ollama"))
		})

		It("keeps the defaults of other keys", func() {
			Expect(execute("set", "conversation.ttl", "45m")).To(Succeed())

			cfg := loadConfig()
			Expect(cfg.Conversation.TTL).To(Equal("45m"))
			Expect(cfg.Conversation.MaxExchanges).To(Equal(10))
		})

		It("rejects unknown keys", func() {
			Expect(execute("set", "invalid_key", "value")).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(execute("set", "llm.primary")).To(HaveOccurred())
			Expect(execute("set")).To(HaveOccurred())
		})

		DescribeTable("rejects values of the wrong type",
			func(key, value string) {
				Expect(execute("set", key, value)).To(MatchError(ContainSubstring("invalid value for " + key)))
			},
			Entry("integer", "retrieval.top_k", "many"),
			Entry("float", "retrieval.threshold", "high"),
			Entry("duration", "conversation.ttl", "forever"),
			Entry("boolean", "events.enabled", "perhaps"),
		)
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(execute("set", "cache.provider", "badger")).To(Succeed())
			Expect(execute("get", "cache.provider")).To(Succeed())
		})

		It("runs without error for an unset key", func() {
			Expect(execute("get", "pipeline.contact")).To(Succeed())
		})

		It("rejects unknown keys", func() {
			Expect(execute("get", "invalid_key")).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			Expect(execute("get")).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("runs without error when no config exists", func() {
			Expect(execute("list")).To(Succeed())
		})

		It("runs without error when config has values", func() {
			Expect(execute("set", "storage.provider", "postgres")).To(Succeed())
			Expect(execute("list")).To(Succeed())
		})

		It("rejects any arguments", func() {
			Expect(execute("list", "extra")).To(HaveOccurred())
		})
	})
})
