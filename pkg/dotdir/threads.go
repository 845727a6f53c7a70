package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	threadsFile = "threads.json"
)

// ThreadState remembers the last orchestrate thread used with an agent so
// "watsonx agent chat --resume" can continue it.
type ThreadState struct {
	AgentID   string    `json:"agent_id"`
	ThreadID  string    `json:"thread_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Manager) loadThreads(dir string) (map[string]ThreadState, error) {
	data, err := os.ReadFile(filepath.Join(dir, threadsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]ThreadState{}, nil
		}
		return nil, fmt.Errorf("reading thread state: %w", err)
	}

	states := map[string]ThreadState{}
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("parsing thread state: %w", err)
	}
	return states, nil
}

func (m *Manager) saveThreads(dir string, states map[string]ThreadState) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling thread state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, threadsFile), data, 0o600); err != nil {
		return fmt.Errorf("writing thread state: %w", err)
	}
	return nil
}

// LoadThread returns the saved thread for agentID, or nil, nil when there
// is none.
func (m *Manager) LoadThread(agentID, overrideDir string) (*ThreadState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	states, err := m.loadThreads(dir)
	if err != nil {
		return nil, err
	}

	state, ok := states[agentID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// SaveThread records threadID as the current thread for agentID.
func (m *Manager) SaveThread(agentID, threadID, overrideDir string) error {
	if agentID == "" || threadID == "" {
		return errors.New("agent id and thread id are required")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	states, err := m.loadThreads(dir)
	if err != nil {
		return err
	}

	states[agentID] = ThreadState{AgentID: agentID, ThreadID: threadID, UpdatedAt: time.Now().UTC()}
	return m.saveThreads(dir, states)
}

// ClearThread forgets the thread for agentID. It is not an error if none
// was saved.
func (m *Manager) ClearThread(agentID, overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	states, err := m.loadThreads(dir)
	if err != nil {
		return err
	}
	if _, ok := states[agentID]; !ok {
		return nil
	}

	delete(states, agentID)
	return m.saveThreads(dir, states)
}
