package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/config"
	"github.com/Josn-deng/lux-xiaokai/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))

		var names []string
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "xiaokai-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// A local .xiaokai dir takes precedence over ~/.xiaokai.
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".xiaokai"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	execute := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	loaded := func() *config.Config {
		cfg, err := config.LoadFile(filepath.Join(tmpDir, ".xiaokai", config.File))
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	Describe("set", func() {
		It("writes the value to the local config file", func() {
			Expect(execute("set", "ai.model", "deepseek-chat")).To(Succeed())
			Expect(loaded().AI.Model).To(Equal("deepseek-chat"))
		})

		It("masks the API key in its output", func() {
			Expect(execute("set", "ai.api_key", "sk-abcdefghijklmnop")).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("ijklmnop"))
			Expect(loaded().AI.APIKey).To(Equal("sk-abcdefghijklmnop"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("set", "proxy.listen", ":8080")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects invalid values", func() {
			Expect(execute("set", "assistant.target_language", "fr")).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(execute("set", "ai.model")).To(HaveOccurred())
		})
	})

	Describe("get", func() {
		It("prints a stored value", func() {
			Expect(execute("set", "history.driver", "sqlite")).To(Succeed())
			out.Reset()

			Expect(execute("get", "history.driver")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("sqlite"))
		})

		It("prints <not set> for empty values", func() {
			Expect(execute("get", "history.postgres_dsn")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("get", "nope")).To(HaveOccurred())
		})
	})

	Describe("list", func() {
		It("lists every key with defaults filled in", func() {
			Expect(execute("list")).To(Succeed())

			s := out.String()
			for _, key := range config.ValidConfigKeys() {
				Expect(s).To(ContainSubstring(key))
			}
			Expect(s).To(ContainSubstring(`"qwen3-coder"`))
		})
	})
})
