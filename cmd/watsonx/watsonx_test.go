package watsonxcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	watsonxcmder "github.com/papercomputeco/watsonx/cmd/watsonx"
)

var _ = Describe("NewWatsonxCmd", func() {
	It("registers every subcommand", func() {
		cmd := watsonxcmder.NewWatsonxCmd()

		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"generate", "chat", "batch", "models", "agent",
			"auth", "config", "serve", "history", "version",
		))
	})

	It("has the global flags", func() {
		cmd := watsonxcmder.NewWatsonxCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("json-logs")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("runs config commands against --config-dir", func() {
		dir := GinkgoT().TempDir()
		out := &bytes.Buffer{}

		cmd := watsonxcmder.NewWatsonxCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"--config-dir", dir, "config", "set", "watsonx.model", "ibm/granite-3-8b-instruct"})
		Expect(cmd.Execute()).To(Succeed())

		out.Reset()
		cmd = watsonxcmder.NewWatsonxCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"--config-dir", dir, "config", "get", "watsonx.model"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("ibm/granite-3-8b-instruct"))
	})

	It("prints the version", func() {
		out := &bytes.Buffer{}
		cmd := watsonxcmder.NewWatsonxCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"version"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).NotTo(BeEmpty())
	})
})
