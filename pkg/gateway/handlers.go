package gateway

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/recorder"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

const defaultHistoryLimit = 50

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// decode unmarshals the request body into v.
func decode(c *fiber.Ctx, op string, v any) error {
	if len(c.Body()) == 0 {
		return wxerrors.InvalidInput(op, "request body is required")
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return wxerrors.InvalidInput(op, "invalid request body: "+err.Error())
	}
	return nil
}

func (s *Server) handleListModels(c *fiber.Ctx) error {
	infos, err := s.deps.Generator.ListModels(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"count":  len(infos),
		"models": infos,
	})
}

func (s *Server) handleGenerate(c *fiber.Ctx) error {
	const op = "gateway_generate"

	var req GenerateRequest
	if err := decode(c, op, &req); err != nil {
		return writeError(c, err)
	}
	if req.Stream {
		return s.streamGeneration(c, req)
	}

	cfg, err := req.config(op, s.Defaults())
	if err != nil {
		return writeError(c, err)
	}

	start := time.Now()
	var res *watsonx.GenerationResult
	if req.Raw {
		res, err = s.deps.Generator.GenerateText(c.UserContext(), req.Prompt, cfg)
	} else {
		res, err = s.deps.Generator.GenerateWithConfig(c.UserContext(), req.Prompt, cfg)
	}
	s.recordGeneration(history.KindGenerate, cfg.ModelID, req.Prompt, start, res, err)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(newGenerateResponse(res))
}

func (s *Server) handleGenerateStream(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := decode(c, "gateway_generate_stream", &req); err != nil {
		return writeError(c, err)
	}
	return s.streamGeneration(c, req)
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	const op = "gateway_chat"

	var req ChatRequest
	if err := decode(c, op, &req); err != nil {
		return writeError(c, err)
	}
	if len(req.Messages) == 0 {
		return writeError(c, wxerrors.InvalidInput(op, "messages are required"))
	}

	cfg := req.config(s.Defaults().ModelID)
	if req.Stream {
		return s.streamChat(c, req, cfg)
	}

	start := time.Now()
	res, err := s.deps.Generator.ChatCompletion(c.UserContext(), req.Messages, cfg)

	job := recorder.NewJob(history.KindChat, cfg.ModelID, lastUserMessage(req.Messages), start, "", err)
	if res != nil {
		job.Entry.Text = res.Content
		job.RequestID = res.RequestID
	}
	s.record(job)

	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleBatch(c *fiber.Ctx) error {
	const op = "gateway_batch"

	var req BatchRequest
	if err := decode(c, op, &req); err != nil {
		return writeError(c, err)
	}

	reqs := make([]watsonx.BatchRequest, 0, len(req.Prompts)+len(req.Requests))
	for _, p := range req.Prompts {
		reqs = append(reqs, watsonx.NewBatchRequest(p))
	}
	reqs = append(reqs, req.Requests...)
	if len(reqs) == 0 {
		return writeError(c, wxerrors.InvalidInput(op, "at least one prompt is required"))
	}

	cfg := s.Defaults()
	if req.Model != "" {
		cfg = cfg.WithModel(req.Model)
	}

	res, err := s.deps.Generator.GenerateBatch(c.UserContext(), reqs, cfg)
	if err != nil {
		return writeError(c, err)
	}

	for _, item := range res.Results {
		job := recorder.NewJob(history.KindBatch, cfg.ModelID, item.Prompt, time.Now(), "", item.Err)
		if item.OK() {
			job.Entry.Model = item.Result.ModelID
			job.Entry.Text = item.Result.Text
			job.Entry.DurationMs = item.Result.Duration.Milliseconds()
			job.RequestID = item.Result.RequestID
		}
		s.record(job)
	}

	return c.JSON(newBatchResponse(res))
}

func (s *Server) handleListAgents(c *fiber.Ctx) error {
	if s.deps.Agents == nil {
		return writeError(c, errAgentsDisabled("gateway_list_agents"))
	}

	agents, err := s.deps.Agents.ListAgents(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"count":  len(agents),
		"agents": agents,
	})
}

func (s *Server) handleAgentMessage(c *fiber.Ctx) error {
	const op = "gateway_agent_message"

	if s.deps.Agents == nil {
		return writeError(c, errAgentsDisabled(op))
	}

	var req AgentMessageRequest
	if err := decode(c, op, &req); err != nil {
		return writeError(c, err)
	}
	if req.Message == "" {
		return writeError(c, wxerrors.InvalidInput(op, "message is required"))
	}

	agentID := c.Params("id")
	start := time.Now()
	res, err := s.deps.Agents.SendMessage(c.UserContext(), agentID, req.Message, req.ThreadID)

	job := recorder.NewJob(history.KindAgent, agentID, req.Message, start, "", err)
	job.Entry.ThreadID = req.ThreadID
	if res != nil {
		job.Entry.Text = res.Text
		job.Entry.ThreadID = res.ThreadID
	}
	s.record(job)

	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(AgentMessageResponse{Text: res.Text, ThreadID: res.ThreadID})
}

func (s *Server) handleListHistory(c *fiber.Ctx) error {
	const op = "gateway_list_history"

	if s.deps.History == nil {
		return writeError(c, wxerrors.Configuration(op, "history is not enabled"))
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return writeError(c, wxerrors.InvalidInput(op, "limit must be a non-negative integer"))
		}
		limit = n
	}

	entries, err := s.deps.History.List(c.UserContext(), limit)
	if err != nil {
		return writeError(c, err)
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	return c.JSON(fiber.Map{
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	if s.deps.History == nil {
		return writeError(c, wxerrors.Configuration("gateway_get_history", "history is not enabled"))
	}

	entry, err := s.deps.History.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(entry)
}

func errAgentsDisabled(op string) error {
	return wxerrors.Configuration(op, "orchestrate is not configured")
}

// recordGeneration enqueues a history job for a plain generation.
func (s *Server) recordGeneration(kind history.Kind, model, prompt string, start time.Time, res *watsonx.GenerationResult, err error) {
	job := recorder.NewJob(kind, model, prompt, start, "", err)
	if res != nil {
		job.Entry.Model = res.ModelID
		job.Entry.Text = res.Text
		job.RequestID = res.RequestID
	}
	s.record(job)
}

func (s *Server) record(job recorder.Job) {
	if s.deps.Recorder == nil {
		return
	}
	s.deps.Recorder.Enqueue(job)
}
