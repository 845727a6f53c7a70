package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/orchestrate"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// fakeGenerator answers every prompt with "answer: <prompt>" unless err is
// set. Prompts containing "fail" fail individually in batches.
type fakeGenerator struct {
	mu         sync.Mutex
	err        error
	fragments  []string
	lastConfig watsonx.GenerationConfig
	lastChat   watsonx.ChatCompletionConfig
	rawCalls   int
	cleanCalls int
}

func (f *fakeGenerator) result(prompt string, cfg watsonx.GenerationConfig) *watsonx.GenerationResult {
	return &watsonx.GenerationResult{Text: "answer: " + prompt, ModelID: cfg.ModelID, TokensUsed: 2, RequestID: "req-" + prompt}
}

func (f *fakeGenerator) GenerateWithConfig(_ context.Context, prompt string, cfg watsonx.GenerationConfig) (*watsonx.GenerationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanCalls++
	f.lastConfig = cfg
	if f.err != nil {
		return nil, f.err
	}
	return f.result(prompt, cfg), nil
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string, cfg watsonx.GenerationConfig) (*watsonx.GenerationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawCalls++
	f.lastConfig = cfg
	if f.err != nil {
		return nil, f.err
	}
	return f.result(prompt, cfg), nil
}

func (f *fakeGenerator) GenerateTextStream(_ context.Context, prompt string, cfg watsonx.GenerationConfig, onFragment func(string) error) (*watsonx.GenerationResult, error) {
	f.mu.Lock()
	f.lastConfig = cfg
	frags, failure := f.fragments, f.err
	f.mu.Unlock()

	for _, frag := range frags {
		if err := onFragment(frag); err != nil {
			return nil, err
		}
	}
	if failure != nil {
		return nil, failure
	}
	res := f.result(prompt, cfg)
	res.Text = strings.Join(frags, "")
	return res, nil
}

func (f *fakeGenerator) ChatCompletion(_ context.Context, messages []watsonx.ChatMessage, cfg watsonx.ChatCompletionConfig) (*watsonx.ChatCompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastChat = cfg
	if f.err != nil {
		return nil, f.err
	}
	return &watsonx.ChatCompletionResult{Content: "re: " + messages[len(messages)-1].Content, ModelID: cfg.ModelID, RequestID: "chat-1"}, nil
}

func (f *fakeGenerator) ChatCompletionStream(_ context.Context, _ []watsonx.ChatMessage, cfg watsonx.ChatCompletionConfig, onFragment func(string) error) (*watsonx.ChatCompletionResult, error) {
	f.mu.Lock()
	f.lastChat = cfg
	frags := f.fragments
	f.mu.Unlock()

	for _, frag := range frags {
		if err := onFragment(frag); err != nil {
			return nil, err
		}
	}
	return &watsonx.ChatCompletionResult{Content: strings.Join(frags, ""), ModelID: cfg.ModelID}, nil
}

func (f *fakeGenerator) GenerateBatch(_ context.Context, reqs []watsonx.BatchRequest, cfg watsonx.GenerationConfig) (*watsonx.BatchGenerationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastConfig = cfg
	if f.err != nil {
		return nil, f.err
	}

	out := &watsonx.BatchGenerationResult{Total: len(reqs)}
	for _, r := range reqs {
		item := watsonx.BatchItemResult{ID: r.ID, Prompt: r.Prompt}
		if strings.Contains(r.Prompt, "fail") {
			item.Err = wxerrors.API("generate", 500, "upstream exploded")
			out.Failed++
		} else {
			item.Result = f.result(r.Prompt, cfg)
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
	return []watsonx.ModelInfo{{ModelID: "ibm/granite-4-h-small", Available: true}}, nil
}

type fakeAgents struct {
	lastThread string
}

func (f *fakeAgents) ListAgents(context.Context) ([]orchestrate.Agent, error) {
	return []orchestrate.Agent{{ID: "a1", Name: "Helper"}}, nil
}

func (f *fakeAgents) SendMessage(_ context.Context, agentID, message, threadID string) (*orchestrate.StreamResult, error) {
	if agentID == "missing" {
		return nil, wxerrors.FromStatus("send_message", http.StatusNotFound, "no such agent")
	}
	f.lastThread = threadID
	thread := threadID
	if thread == "" {
		thread = "thread-new"
	}
	return &orchestrate.StreamResult{Text: agentID + " says " + message, ThreadID: thread}, nil
}

// do runs one request against the server's fiber app.
func do(s *Server, method, path string, body any) *http.Response {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func decodeBody(resp *http.Response, v any) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
