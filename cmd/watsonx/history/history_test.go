package historycmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/history"
)

var _ = Describe("history commands", func() {
	var (
		ctx   context.Context
		store *history.MemoryStore
		out   *bytes.Buffer
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = history.NewMemoryStore()
		out = &bytes.Buffer{}

		Expect(store.Record(ctx, &history.Entry{ID: "e-1", Kind: history.KindGenerate, Model: "ibm/granite", Prompt: "first", Text: "one"})).To(Succeed())
		Expect(store.Record(ctx, &history.Entry{ID: "e-2", Kind: history.KindChat, Model: "ibm/granite", Prompt: "second", Error: "rate limited"})).To(Succeed())
	})

	Describe("list", func() {
		It("renders a table of entries", func() {
			Expect(runList(ctx, store, out, 10, false)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("e-1"))
			Expect(out.String()).To(ContainSubstring("second"))
		})

		It("honours the limit", func() {
			Expect(runList(ctx, store, out, 1, true)).To(Succeed())

			var entries []history.Entry
			Expect(json.Unmarshal(out.Bytes(), &entries)).To(Succeed())
			Expect(entries).To(HaveLen(1))
		})

		It("says when nothing is recorded", func() {
			Expect(runList(ctx, history.NewMemoryStore(), out, 10, false)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No recorded calls."))
		})
	})

	Describe("show", func() {
		It("prints the prompt and response", func() {
			Expect(runShow(ctx, store, out, "e-1", false)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("first"))
			Expect(out.String()).To(ContainSubstring("one"))
		})

		It("prints the error of a failed call", func() {
			Expect(runShow(ctx, store, out, "e-2", false)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("rate limited"))
		})

		It("returns not found for unknown ids", func() {
			err := runShow(ctx, store, out, "missing", false)
			var nf history.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
		})
	})

	Describe("command wiring", func() {
		It("reads a sqlite history given on the command line", func() {
			dsn := filepath.Join(GinkgoT().TempDir(), "history.db")
			sqlite, err := history.NewSQLiteStore(ctx, dsn)
			Expect(err).NotTo(HaveOccurred())
			Expect(sqlite.Record(ctx, &history.Entry{ID: "s-1", Kind: history.KindBatch, Prompt: "from disk"})).To(Succeed())
			Expect(sqlite.Close()).To(Succeed())

			cmd := NewHistoryCmd()
			cmd.PersistentFlags().String("config-dir", GinkgoT().TempDir(), "")
			cmd.SetOut(out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"show", "s-1", "--history-driver", "sqlite", "--history-dsn", dsn})
			Expect(cmd.ExecuteContext(ctx)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("from disk"))
		})
	})
})
