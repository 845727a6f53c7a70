package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/recorder"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
)

// The gateway re-emits fragments in the same payload shapes watsonx uses,
// so any client of the upstream stream can read the gateway's.
type generationChunk struct {
	Results []generationChunkResult `json:"results"`
}

type generationChunkResult struct {
	GeneratedText string `json:"generated_text"`
}

type chatChunk struct {
	Choices []chatChunkChoice `json:"choices"`
}

type chatChunkChoice struct {
	Delta watsonx.ChatMessage `json:"delta"`
}

func writeEvent(w io.Writer, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

func writeErrorEvent(w io.Writer, err error) {
	b, _ := json.Marshal(newErrorResponse(err))
	_, _ = fmt.Fprintf(w, "event: error\ndata: %s\n\n", b)
}

func writeDone(w io.Writer) {
	_, _ = io.WriteString(w, "data: [DONE]\n\n")
}

// startStream answers with an event stream fed by produce. produce runs in
// its own goroutine and must return once writes to w fail.
//
// io.Pipe gives per-chunk flushing: pw.Write blocks until fasthttp's chunked
// body writer has consumed the data.
func (s *Server) startStream(c *fiber.Ctx, produce func(w io.Writer)) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		produce(pw)
	}()

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

func (s *Server) streamGeneration(c *fiber.Ctx, req GenerateRequest) error {
	const op = "gateway_generate_stream"

	cfg, err := req.config(op, s.Defaults())
	if err != nil {
		return writeError(c, err)
	}

	return s.startStream(c, func(w io.Writer) {
		start := time.Now()

		// fasthttp recycles the request context once the handler returns
		res, err := s.deps.Generator.GenerateTextStream(context.Background(), req.Prompt, cfg, func(frag string) error {
			return writeEvent(w, generationChunk{Results: []generationChunkResult{{GeneratedText: frag}}})
		})
		if err != nil {
			s.logger.Warn("stream generation failed", "model", cfg.ModelID, "error", err)
			writeErrorEvent(w, err)
		}
		writeDone(w)

		s.recordGeneration(history.KindStream, cfg.ModelID, req.Prompt, start, res, err)
	})
}

func (s *Server) streamChat(c *fiber.Ctx, req ChatRequest, cfg watsonx.ChatCompletionConfig) error {
	return s.startStream(c, func(w io.Writer) {
		start := time.Now()

		res, err := s.deps.Generator.ChatCompletionStream(context.Background(), req.Messages, cfg, func(frag string) error {
			return writeEvent(w, chatChunk{Choices: []chatChunkChoice{{Delta: watsonx.AssistantMessage(frag)}}})
		})
		if err != nil {
			s.logger.Warn("chat stream failed", "model", cfg.ModelID, "error", err)
			writeErrorEvent(w, err)
		}
		writeDone(w)

		job := recorder.NewJob(history.KindChat, cfg.ModelID, lastUserMessage(req.Messages), start, "", err)
		if res != nil {
			job.Entry.Text = res.Content
			job.RequestID = res.RequestID
		}
		s.record(job)
	})
}
