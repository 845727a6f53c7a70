package orchestrate

// Agent is an orchestrate agent as listed by the API.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// Thread is a conversation with an agent.
type Thread struct {
	ID           string `json:"thread_id"`
	AgentID      string `json:"agent_id,omitempty"`
	Title        string `json:"title,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	MessageCount uint32 `json:"message_count,omitempty"`
}

// Message is one message of a thread.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamResult is the outcome of a streamed agent run.
type StreamResult struct {
	// Text is every delta concatenated, without cleanup.
	Text string

	// ThreadID continues the conversation. It is the id the server last
	// reported, or the id the run was started with.
	ThreadID string
}

type runRequest struct {
	Message  Message `json:"message"`
	AgentID  string  `json:"agent_id"`
	ThreadID string  `json:"thread_id,omitempty"`
}

type createThreadRequest struct {
	AgentID string `json:"agent_id,omitempty"`
}

// runEnvelope is one record of the runs stream.
type runEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		ThreadID string `json:"thread_id"`
		Message  struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
	} `json:"data"`
}
