package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// State is the serialized portfolio. Cash, positions, and the ledger
// round-trip exactly so a live session resumes with invariants intact.
type State struct {
	Version   int64               `json:"version"`
	UpdatedAt string              `json:"updated_at"`
	Config    Config              `json:"config"`
	Cash      float64             `json:"cash"`
	Positions map[string]Position `json:"positions"`
	History   []TradeRecord       `json:"trade_history"`
}

// Snapshot captures the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.version++
	positions := make(map[string]Position, len(m.positions))
	for s, p := range m.positions {
		positions[s] = *p
	}
	history := make([]TradeRecord, len(m.history))
	copy(history, m.history)

	return State{
		Version:   m.version,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Config:    m.cfg,
		Cash:      m.cash,
		Positions: positions,
		History:   history,
	}
}

// SaveFile writes the snapshot atomically (temp file + rename).
func (m *Manager) SaveFile(path string) error {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal portfolio state: %w", err)
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write portfolio state: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename portfolio state: %w", err)
	}
	return nil
}

// LoadFile restores a manager from path. A missing file yields a fresh
// manager with the supplied config.
func LoadFile(path string, cfg Config) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManager(cfg), nil
		}
		return nil, fmt.Errorf("read portfolio state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal portfolio state: %w", err)
	}

	m := NewManager(st.Config)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash = st.Cash
	m.positions = make(map[string]*Position, len(st.Positions))
	for s, p := range st.Positions {
		pos := p
		m.positions[s] = &pos
	}
	m.history = st.History
	m.version = st.Version
	return m, nil
}
