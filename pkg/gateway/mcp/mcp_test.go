package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/logger"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

type fakeGenerator struct {
	lastPrompt string
	lastConfig watsonx.GenerationConfig
	err        error
	models     []watsonx.ModelInfo
}

func (f *fakeGenerator) GenerateWithConfig(_ context.Context, prompt string, cfg watsonx.GenerationConfig) (*watsonx.GenerationResult, error) {
	f.lastPrompt = prompt
	f.lastConfig = cfg
	if f.err != nil {
		return nil, f.err
	}
	return &watsonx.GenerationResult{Text: "answer to " + prompt, ModelID: cfg.ModelID, TokensUsed: 3, QualityScore: 0.8}, nil
}

func (f *fakeGenerator) GenerateBatch(_ context.Context, reqs []watsonx.BatchRequest, cfg watsonx.GenerationConfig) (*watsonx.BatchGenerationResult, error) {
	f.lastConfig = cfg
	out := &watsonx.BatchGenerationResult{Total: len(reqs)}
	for _, r := range reqs {
		item := watsonx.BatchItemResult{Prompt: r.Prompt}
		if strings.Contains(r.Prompt, "fail") {
			item.Err = wxerrors.API("generate", 500, "boom")
			out.Failed++
		} else {
			item.Result = &watsonx.GenerationResult{Text: strings.ToUpper(r.Prompt)}
			out.Successful++
		}
		out.Results = append(out.Results, item)
	}
	return out, nil
}

func (f *fakeGenerator) ListModels(context.Context) ([]watsonx.ModelInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

func textOf(res *mcp.CallToolResult) string {
	Expect(res.Content).NotTo(BeEmpty())
	tc, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return tc.Text
}

var _ = Describe("MCP Server", func() {
	var (
		gen    *fakeGenerator
		server *Server
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		gen = &fakeGenerator{}

		var err error
		server, err = NewServer(Config{Generator: gen, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("requires a generator", func() {
			_, err := NewServer(Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("generator is required")))
		})

		It("requires a logger", func() {
			_, err := NewServer(Config{Generator: gen})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("allows a noop server without dependencies", func() {
			s, err := NewServer(Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})
	})

	Describe("generate", func() {
		It("uses the defaults with per-call overrides", func() {
			res, out, err := server.handleGenerate(ctx, nil, GenerateInput{Prompt: "hi", Model: "ibm/granite-3-3-8b-instruct", MaxTokens: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Text).To(Equal("answer to hi"))
			Expect(out.ModelID).To(Equal("ibm/granite-3-3-8b-instruct"))
			Expect(gen.lastConfig.MaxTokens).To(Equal(uint32(100)))
			Expect(textOf(res)).To(ContainSubstring(`"text":"answer to hi"`))
		})

		It("rejects an empty prompt without calling the model", func() {
			res, _, err := server.handleGenerate(ctx, nil, GenerateInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(gen.lastPrompt).To(BeEmpty())
		})

		It("reports failures as tool errors", func() {
			gen.err = wxerrors.Authentication("generate", "not connected, call Connect first")
			res, _, err := server.handleGenerate(ctx, nil, GenerateInput{Prompt: "hi"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("not connected"))
		})
	})

	Describe("batch_generate", func() {
		It("keeps order and isolates failures", func() {
			res, out, err := server.handleBatchGenerate(ctx, nil, BatchInput{Prompts: []string{"a", "fail", "c"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Successful).To(Equal(2))
			Expect(out.Failed).To(Equal(1))
			Expect(out.Results[0].Text).To(Equal("A"))
			Expect(out.Results[1].Error).NotTo(BeEmpty())
			Expect(out.Results[2].Text).To(Equal("C"))
		})

		It("requires prompts", func() {
			res, _, err := server.handleBatchGenerate(ctx, nil, BatchInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe("list_models", func() {
		It("returns the catalog", func() {
			gen.models = []watsonx.ModelInfo{{ModelID: "ibm/granite-4-h-small", Available: true}}
			_, out, err := server.handleListModels(ctx, nil, ListModelsInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(1))
		})

		It("reports failures as tool errors", func() {
			gen.err = errors.New("down")
			res, _, err := server.handleListModels(ctx, nil, ListModelsInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})
})
