package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	chdir := func(dir string) {
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(func() { os.Chdir(origDir) })
	}

	Describe("Target", func() {
		It("creates the directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns the override dir even when a local .watsonx dir exists", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".watsonx"), 0o755)).To(Succeed())
			chdir(tmpDir)

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .watsonx dir when it exists and no override is provided", func() {
			local := filepath.Join(tmpDir, ".watsonx")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(tmpDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to creating ~/.watsonx", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())
			chdir(emptyDir)
			GinkgoT().Setenv("HOME", emptyDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(emptyDir, ".watsonx")))
		})
	})

	Describe("thread state", func() {
		It("returns nil when nothing was saved", func() {
			state, err := m.LoadThread("agent-1", tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("saves, overwrites and clears per agent", func() {
			Expect(m.SaveThread("agent-1", "t1", tmpDir)).To(Succeed())
			Expect(m.SaveThread("agent-2", "t2", tmpDir)).To(Succeed())
			Expect(m.SaveThread("agent-1", "t3", tmpDir)).To(Succeed())

			state, err := m.LoadThread("agent-1", tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.ThreadID).To(Equal("t3"))
			Expect(state.UpdatedAt).NotTo(BeZero())

			Expect(m.ClearThread("agent-1", tmpDir)).To(Succeed())
			state, err = m.LoadThread("agent-1", tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())

			other, err := m.LoadThread("agent-2", tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(other.ThreadID).To(Equal("t2"))
		})

		It("tolerates clearing an unknown agent", func() {
			Expect(m.ClearThread("nobody", tmpDir)).To(Succeed())
		})

		It("rejects empty ids", func() {
			Expect(m.SaveThread("", "t", tmpDir)).NotTo(Succeed())
		})

		It("reports a corrupt state file", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "threads.json"), []byte("{"), 0o600)).To(Succeed())
			_, err := m.LoadThread("agent-1", tmpDir)
			Expect(err).To(MatchError(ContainSubstring("parsing thread state")))
		})
	})
})
