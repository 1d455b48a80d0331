package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("overrides only the keys present in the file", func() {
			writeConfig(`version = 0

[llm]
primary = "ollama"

[retrieval]
threshold = 0.55
top_k = 5

[server]
mcp = false
`)
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.LLM.Primary).To(Equal("ollama"))
			Expect(cfg.Retrieval.Threshold).To(Equal(0.55))
			Expect(cfg.Retrieval.TopK).To(Equal(5))
			Expect(cfg.Server.MCP).To(BeFalse())

			defaults := config.NewDefaultConfig()
			Expect(cfg.LLM.Fallback).To(Equal(defaults.LLM.Fallback))
			Expect(cfg.Server.Listen).To(Equal(defaults.Server.Listen))
			Expect(cfg.Cache.TTL).To(Equal(defaults.Cache.TTL))
		})

		It("loads provider sections", func() {
			writeConfig(`[providers.gemini]
model = "gemini-2.0-flash"

[providers.ollama]
base_url = "http://gpu-box:11434"
embedding_model = "mxbai-embed-large"
`)
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Providers.Gemini.Model).To(Equal("gemini-2.0-flash"))
			Expect(cfg.Providers.Ollama.BaseURL).To(Equal("http://gpu-box:11434"))
			Expect(cfg.Providers.Ollama.EmbeddingModel).To(Equal("mxbai-embed-large"))
		})

		It("returns error for malformed TOML", func() {
			writeConfig("[[[ not toml")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 99\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 99")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk and loads it back", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Cache.Provider = "redis"
			cfg.Cache.Target = "redis://localhost:6379/0"
			cfg.Events.Enabled = true
			Expect(c.SaveConfig(cfg)).To(Succeed())

			_, err = os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets a string config key", func() {
			Expect(c.SetConfigValue("llm.fallback", "onemin")).To(Succeed())

			val, err := c.GetConfigValue("llm.fallback")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("onemin"))
		})

		It("sets numeric config keys", func() {
			Expect(c.SetConfigValue("retrieval.top_k", "7")).To(Succeed())
			Expect(c.SetConfigValue("retrieval.threshold", "0.65")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Retrieval.TopK).To(Equal(7))
			Expect(cfg.Retrieval.Threshold).To(Equal(0.65))
		})

		It("sets a bool config key", func() {
			Expect(c.SetConfigValue("events.enabled", "true")).To(Succeed())

			val, err := c.GetConfigValue("events.enabled")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("true"))
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("cache.provider", "badger")).To(Succeed())
			Expect(c.SetConfigValue("cache.target", "/var/lib/answerdesk/cache")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Cache.Provider).To(Equal("badger"))
			Expect(cfg.Cache.Target).To(Equal("/var/lib/answerdesk/cache"))
		})

		DescribeTable("rejects invalid values",
			func(key, value string) {
				err := c.SetConfigValue(key, value)
				Expect(err).To(MatchError(ContainSubstring("invalid value for " + key)))
			},
			Entry("int", "retrieval.top_k", "many"),
			Entry("float", "retrieval.threshold", "high"),
			Entry("bool", "server.mcp", "maybe"),
			Entry("duration", "cache.ttl", "an hour"),
		)

		It("returns error for unknown key", func() {
			err := c.SetConfigValue("proxy.upstream", "x")
			Expect(err).To(MatchError(ContainSubstring(`unknown config key: "proxy.upstream"`)))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns the default when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("conversation.ttl")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("30m"))
		})

		It("returns empty string for key with no default", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("storage.postgres_dsn")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(BeEmpty())
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("covers every section", func() {
		keys := config.ValidConfigKeys()
		for _, k := range []string{
			"server.listen",
			"pipeline.language",
			"conversation.max_exchanges",
			"cache.ttl",
			"retrieval.threshold",
			"llm.primary",
			"providers.mistral.model",
			"storage.provider",
			"events.brokers",
		} {
			Expect(keys).To(ContainElement(k))
		}
	})

	It("returns keys in stable order", func() {
		Expect(config.ValidConfigKeys()).To(Equal(config.ValidConfigKeys()))
		Expect(config.ValidConfigKeys()[0]).To(Equal("server.listen"))
	})

	It("only returns keys IsValidConfigKey accepts", func() {
		for _, k := range config.ValidConfigKeys() {
			Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
		}
		Expect(config.IsValidConfigKey("server")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	It("sets up the gemini router", func() {
		cfg, err := config.PresetConfig("gemini")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Primary).To(Equal("gemini"))
		Expect(cfg.LLM.Fallback).To(Equal("mistral"))
		Expect(cfg.Retrieval.Dimensions).To(Equal(768))
	})

	It("matches mistral embedding dimensions", func() {
		cfg, err := config.PresetConfig("mistral")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Embedding).To(Equal("mistral"))
		Expect(cfg.Retrieval.Dimensions).To(Equal(1024))
	})

	It("points ollama at localhost", func() {
		cfg, err := config.PresetConfig("OLLAMA")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Providers.Ollama.BaseURL).To(Equal("http://localhost:11434"))
		Expect(cfg.LLM.Fallback).To(Equal("ollama"))
	})

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("openai")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("does not apply defaults", func() {
		cfg, err := config.ParseConfigTOML([]byte("[llm]\nprimary = \"mistral\"\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Primary).To(Equal("mistral"))
		Expect(cfg.LLM.Fallback).To(BeEmpty())
	})

	It("returns empty config for empty input", func() {
		cfg, err := config.ParseConfigTOML([]byte(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(*cfg).To(Equal(config.Config{}))
	})
})

var _ = Describe("durations", func() {
	It("parses the defaults", func() {
		cfg := config.NewDefaultConfig()
		Expect(cfg.Conversation.TTLDuration()).To(Equal(30 * time.Minute))
		Expect(cfg.Conversation.SweepIntervalDuration()).To(Equal(5 * time.Minute))
		Expect(cfg.Cache.TTLDuration()).To(Equal(30 * time.Minute))
		Expect(cfg.LLM.TimeoutDuration()).To(Equal(30 * time.Second))
	})

	It("treats invalid values as unset", func() {
		Expect(config.CacheConfig{TTL: "soon"}.TTLDuration()).To(BeZero())
	})
})
