package authcmder_test

import (
	"bytes"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	authcmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/auth"
	"github.com/Josn-deng/lux-xiaokai/pkg/config"
)

var _ = Describe("auth", func() {
	var (
		configDir string
		out       *bytes.Buffer
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
		GinkgoT().Setenv(config.APIKeyEnv, "")
	})

	execute := func(stdin string, args ...string) error {
		cmd := authcmder.NewAuthCmd()
		cmd.Flags().String("config-dir", configDir, "")
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	stored := func() string {
		cfg, err := config.LoadFile(filepath.Join(configDir, config.File))
		Expect(err).NotTo(HaveOccurred())
		return cfg.AI.APIKey
	}

	It("stores a piped key", func() {
		Expect(execute("  sk-abcdefghijklmnop  \nignored\n")).To(Succeed())
		Expect(stored()).To(Equal("sk-abcdefghijklmnop"))
		Expect(out.String()).To(ContainSubstring("sk-abcde..."))
		Expect(out.String()).NotTo(ContainSubstring("ijklmnop"))
	})

	It("rejects an empty key", func() {
		Expect(execute("   \n")).To(MatchError(ContainSubstring("cannot be empty")))
	})

	It("fails without input", func() {
		Expect(execute("")).To(MatchError(ContainSubstring("no input")))
	})

	It("removes the stored key", func() {
		Expect(execute("sk-abcdefghijklmnop\n")).To(Succeed())
		Expect(execute("", "--remove")).To(Succeed())
		Expect(stored()).To(BeEmpty())
	})

	Describe("--status", func() {
		It("reports a missing key", func() {
			Expect(execute("", "--status")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No API key configured"))
		})

		It("reports the environment fallback", func() {
			GinkgoT().Setenv(config.APIKeyEnv, "sk-from-environment")
			Expect(execute("", "--status")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(config.APIKeyEnv))
		})

		It("prefers the stored key", func() {
			Expect(execute("sk-abcdefghijklmnop\n")).To(Succeed())
			out.Reset()

			Expect(execute("", "--status")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`ai.api_key`))
		})
	})
})
