package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveSQLitePath", func() {
	var (
		homeDir string
		cwdDir  string
	)

	BeforeEach(func() {
		homeDir = GinkgoT().TempDir()
		cwdDir = GinkgoT().TempDir()

		GinkgoT().Setenv("HOME", homeDir)
		GinkgoT().Setenv("XDG_DATA_HOME", "")
		GinkgoT().Setenv(EnvVar, "")

		origCwd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(cwdDir)).To(Succeed())
		DeferCleanup(func() {
			Expect(os.Chdir(origCwd)).To(Succeed())
		})
	})

	It("prefers the override", func() {
		GinkgoT().Setenv(EnvVar, "/tmp/env.db")

		path, err := ResolveSQLitePath(" /tmp/flag.db ", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/flag.db"))
	})

	It("uses XIAOKAI_SQLITE when set", func() {
		GinkgoT().Setenv(EnvVar, "/tmp/custom.db")

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("finds an existing ~/.xiaokai/history.db", func() {
		dbPath := filepath.Join(homeDir, ".xiaokai", FileName)
		Expect(os.MkdirAll(filepath.Dir(dbPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(dbPath))
	})

	It("falls back to history.db in the config dir", func() {
		configDir := filepath.Join(cwdDir, "conf")

		path, err := ResolveSQLitePath("", configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(configDir, FileName)))
		Expect(configDir).To(BeADirectory())
	})
})
