package session_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/config"
	"github.com/papercomputeco/watsonx/pkg/credentials"
	"github.com/papercomputeco/watsonx/pkg/eventstream/kafka"
	"github.com/papercomputeco/watsonx/pkg/eventstream/nop"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/recorder"
)

func newCmd(configDir string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config-dir", configDir, "")
	cmd.Flags().Bool("debug", false, "")
	cmd.Flags().Bool("json-logs", true, "")
	return cmd
}

func clearKeyEnv() {
	for _, name := range []string{"WATSONX_API_KEY", "API_KEY", "WXO_API_KEY", "WATSONX_WATSONX_API_KEY"} {
		if old, ok := os.LookupEnv(name); ok {
			DeferCleanup(os.Setenv, name, old)
		} else {
			DeferCleanup(os.Unsetenv, name)
		}
		os.Unsetenv(name)
	}
}

var _ = Describe("Session", func() {
	var (
		tmpDir string
		ctx    context.Context
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		ctx = context.Background()
		clearKeyEnv()
	})

	It("binds registry flags over config file values", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[watsonx]\nmodel = \"from-file\"\n"), 0o600)).To(Succeed())

		cmd := newCmd(tmpDir)
		var model string
		config.AddStringFlag(cmd, config.Flags, config.FlagModel, &model)
		Expect(cmd.Flags().Set("model", "from-flag")).To(Succeed())

		s, err := session.Load(cmd, config.FlagModel)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.GenerationConfig().ModelID).To(Equal("from-flag"))
	})

	It("resolves the watsonx key from credentials.toml", func() {
		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.SetKey(credentials.ProviderWatsonx, "stored-key")).To(Succeed())

		s, err := session.Load(newCmd(tmpDir))
		Expect(err).NotTo(HaveOccurred())

		cfg, err := s.WatsonxConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.APIKey).To(Equal("stored-key"))
	})

	It("prefers the environment key", func() {
		os.Setenv("WATSONX_API_KEY", "env-key")

		s, err := session.Load(newCmd(tmpDir))
		Expect(err).NotTo(HaveOccurred())

		cfg, err := s.WatsonxConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.APIKey).To(Equal("env-key"))
	})

	It("refuses orchestrate without any key", func() {
		s, err := session.Load(newCmd(tmpDir))
		Expect(err).NotTo(HaveOccurred())
		s.Viper.Set("orchestrate.instance_id", "inst")

		_, err = s.Orchestrate(ctx)
		Expect(err).To(MatchError(ContainSubstring("no API key configured")))
	})

	Describe("history and events", func() {
		It("opens an in-memory store by default", func() {
			s, err := session.Load(newCmd(tmpDir))
			Expect(err).NotTo(HaveOccurred())

			store, err := s.OpenHistory(ctx)
			Expect(err).NotTo(HaveOccurred())
			defer store.Close()
			Expect(store).To(BeAssignableToTypeOf(&history.MemoryStore{}))
		})

		It("places the sqlite database in the config directory", func() {
			s, err := session.Load(newCmd(tmpDir))
			Expect(err).NotTo(HaveOccurred())
			s.Viper.Set("history.driver", "sqlite")

			store, err := s.OpenHistory(ctx)
			Expect(err).NotTo(HaveOccurred())
			defer store.Close()

			_, err = os.Stat(filepath.Join(tmpDir, "history.db"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("uses the no-op publisher without brokers", func() {
			s, err := session.Load(newCmd(tmpDir))
			Expect(err).NotTo(HaveOccurred())

			pub, err := s.Publisher()
			Expect(err).NotTo(HaveOccurred())
			Expect(pub).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("builds a kafka publisher from the broker list", func() {
			s, err := session.Load(newCmd(tmpDir))
			Expect(err).NotTo(HaveOccurred())
			s.Viper.Set("events.kafka_brokers", "localhost:9092, localhost:9093")

			pub, err := s.Publisher()
			Expect(err).NotTo(HaveOccurred())
			defer pub.Close()
			Expect(pub).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		})

		It("records jobs through the recorder pool", func() {
			s, err := session.Load(newCmd(tmpDir))
			Expect(err).NotTo(HaveOccurred())
			s.Viper.Set("history.driver", "sqlite")

			pool, store, closeFn, err := s.Recorder(ctx, "cli")
			Expect(err).NotTo(HaveOccurred())

			session.Record(pool, recorder.Job{Entry: history.Entry{Kind: history.KindGenerate, Prompt: "hi", Text: "hello"}})
			Eventually(func() int {
				entries, err := store.List(ctx, 0)
				Expect(err).NotTo(HaveOccurred())
				return len(entries)
			}).Should(Equal(1))

			closeFn()
		})
	})
})
