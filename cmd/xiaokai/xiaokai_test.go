package xiaokaicmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	xiaokaicmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai"
)

var _ = Describe("NewXiaokaiCmd", func() {
	It("registers every subcommand", func() {
		cmd := xiaokaicmder.NewXiaokaiCmd()

		var names []string
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"translate", "polish", "ask", "speech", "chat", "serve",
			"auth", "config", "history", "init", "version",
		))
	})

	It("exposes the global flags to subcommands", func() {
		cmd := xiaokaicmder.NewXiaokaiCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("runs a subcommand", func() {
		var out bytes.Buffer
		cmd := xiaokaicmder.NewXiaokaiCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version:"))
	})
})
