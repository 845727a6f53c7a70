package authcmder

import (
	"bytes"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/credentials"
)

var _ = Describe("auth command", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
		for _, name := range []string{"WATSONX_API_KEY", "API_KEY", "WXO_API_KEY"} {
			if v, ok := os.LookupEnv(name); ok {
				DeferCleanup(os.Setenv, name, v)
				Expect(os.Unsetenv(name)).To(Succeed())
			}
		}
	})

	commander := func(input string) *authCommander {
		return &authCommander{configDir: dir, in: strings.NewReader(input), out: out}
	}

	storedKey := func(provider string) string {
		mgr, err := credentials.NewManager(dir)
		Expect(err).NotTo(HaveOccurred())
		key, err := mgr.GetKey(provider)
		Expect(err).NotTo(HaveOccurred())
		return key
	}

	It("stores a piped key", func() {
		Expect(commander("  secret-key \n").runAuth("WatsonX")).To(Succeed())
		Expect(storedKey("watsonx")).To(Equal("secret-key"))
		Expect(out.String()).To(ContainSubstring("Stored"))
	})

	It("rejects unknown providers", func() {
		err := commander("k\n").runAuth("openai")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unsupported provider"))
	})

	It("rejects an empty key", func() {
		Expect(commander("   \n").runAuth("watsonx")).To(MatchError("API key cannot be empty"))
	})

	It("fails without input", func() {
		Expect(commander("").runAuth("orchestrate")).To(MatchError("no input received on stdin"))
	})

	It("warns when the environment overrides the stored key", func() {
		DeferCleanup(os.Unsetenv, "WXO_API_KEY")
		Expect(os.Setenv("WXO_API_KEY", "from-env")).To(Succeed())

		Expect(commander("stored\n").runAuth("orchestrate")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("WXO_API_KEY is set"))
	})

	It("lists where each key comes from", func() {
		Expect(commander("k\n").runAuth("watsonx")).To(Succeed())
		out.Reset()

		Expect(commander("").runList()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("stored"))
		Expect(out.String()).To(ContainSubstring("watsonx auth orchestrate"))
	})

	It("removes a stored key", func() {
		Expect(commander("k\n").runAuth("watsonx")).To(Succeed())
		Expect(commander("").runRemove("watsonx")).To(Succeed())
		Expect(storedKey("watsonx")).To(BeEmpty())
	})
})
