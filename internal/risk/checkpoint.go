package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Snapshot is the serializable risk state. It round-trips exactly so a live
// session can resume without altering gate behavior.
type Snapshot struct {
	UpdatedAt string    `json:"updated_at"`
	Equity    []float64 `json:"equity_curve"`
	Cooldown  int       `json:"cooldown"`
}

// Snapshot captures the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq := make([]float64, len(s.equity))
	copy(eq, s.equity)
	return Snapshot{
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Equity:    eq,
		Cooldown:  s.cooldown,
	}
}

// Restore replaces the running state with a snapshot.
func (s *State) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equity = make([]float64, len(snap.Equity))
	copy(s.equity, snap.Equity)
	s.cooldown = snap.Cooldown
}

// SaveFile writes the snapshot atomically (temp file + rename).
func (s *State) SaveFile(path string) error {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal risk state: %w", err)
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write risk state: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename risk state: %w", err)
	}
	return nil
}

// LoadFile restores state from path into a fresh State. A missing file is
// not an error; the state starts empty.
func LoadFile(path string, cfg Config) (*State, error) {
	s := NewState(cfg)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read risk state: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal risk state: %w", err)
	}
	s.Restore(snap)
	return s, nil
}
