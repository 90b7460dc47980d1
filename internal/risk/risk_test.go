package risk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateEquity_CumulativeCurve(t *testing.T) {
	s := NewState(Config{})
	s.UpdateEquity(0.5)
	s.UpdateEquity(-0.2)
	s.UpdateEquity(0.1)

	assert.Equal(t, []float64{0.5, 0.3, 0.4}, s.EquityCurve())
	assert.InDelta(t, 0.4, s.LatestEquity(), 1e-12)
}

func TestCurrentDrawdown_PeakToTrough(t *testing.T) {
	s := NewState(Config{})
	for _, pnl := range []float64{1.0, 1.0, -1.5, 0.2} {
		s.UpdateEquity(pnl)
	}
	// Curve: 1.0, 2.0, 0.5, 0.7. Peak 2.0, trough 0.5.
	assert.InDelta(t, -1.5, s.CurrentDrawdown(), 1e-12)

	empty := NewState(Config{})
	assert.Equal(t, 0.0, empty.CurrentDrawdown())
}

func TestVolatilityGate(t *testing.T) {
	s := NewState(Config{MaxVolatility: 0.03})

	// Fewer than 20 realized returns: the gate stays open whatever the values.
	wild := make([]float64, 19)
	for i := range wild {
		wild[i] = 0.5 * float64(1-2*(i%2))
	}
	res := s.CheckGates(wild)
	assert.True(t, res.Allowed)

	// A full window of wild swings trips it.
	wild = append(wild, -0.5)
	res = s.CheckGates(wild)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Blocked, GateVolatility)

	// A calm full window passes.
	calm := make([]float64, 20)
	for i := range calm {
		calm[i] = 0.001
	}
	res = s.CheckGates(calm)
	assert.True(t, res.Allowed)
}

func TestDrawdownGate(t *testing.T) {
	s := NewState(Config{MaxDrawdown: 0.25})

	// 29 points of heavy losses: still open, history too short.
	s.UpdateEquity(1.0)
	for i := 0; i < 28; i++ {
		s.UpdateEquity(-0.05)
	}
	require.Len(t, s.EquityCurve(), 29)
	assert.True(t, s.CheckGates(nil).Allowed)

	// The 30th point crosses the history threshold with drawdown 1.45 > 0.25.
	s.UpdateEquity(-0.05)
	res := s.CheckGates(nil)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Blocked, GateDrawdown)
}

func TestCooldown_BlocksExactlyConfiguredTicks(t *testing.T) {
	s := NewState(Config{CooldownTicks: 5})

	assert.True(t, s.CheckGates(nil).Allowed, "no loss yet")

	s.RegisterTradeResult(-0.1)
	require.Equal(t, 5, s.CooldownRemaining())

	// Five consecutive checks blocked, each burning one tick.
	for i := 0; i < 5; i++ {
		res := s.CheckGates(nil)
		assert.False(t, res.Allowed, "check %d should be blocked", i+1)
		assert.Contains(t, res.Blocked, GateCooldown)
	}
	assert.Equal(t, 0, s.CooldownRemaining())
	assert.True(t, s.CheckGates(nil).Allowed, "sixth check resumes trading")
}

func TestCooldown_WinDoesNotArm(t *testing.T) {
	s := NewState(Config{CooldownTicks: 5})
	s.RegisterTradeResult(0.2)
	s.RegisterTradeResult(0.0)
	assert.Equal(t, 0, s.CooldownRemaining())
	assert.True(t, s.CheckGates(nil).Allowed)
}

func TestCooldown_LossDuringCooldownRearms(t *testing.T) {
	s := NewState(Config{CooldownTicks: 5})
	s.RegisterTradeResult(-0.1)
	s.CheckGates(nil)
	s.CheckGates(nil)
	require.Equal(t, 3, s.CooldownRemaining())

	s.RegisterTradeResult(-0.1)
	assert.Equal(t, 5, s.CooldownRemaining())
}

func TestCheckGates_ReportsAllBlockedGates(t *testing.T) {
	s := NewState(Config{MaxVolatility: 0.03, MaxDrawdown: 0.25, CooldownTicks: 5})
	for i := 0; i < 30; i++ {
		s.UpdateEquity(-0.05)
	}
	s.RegisterTradeResult(-0.05)

	wild := make([]float64, 20)
	for i := range wild {
		wild[i] = 0.5 * float64(1-2*(i%2))
	}

	res := s.CheckGates(wild)
	assert.False(t, res.Allowed)
	assert.Equal(t, []string{GateVolatility, GateDrawdown, GateCooldown}, res.Blocked)
}

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.json")

	s := NewState(Config{CooldownTicks: 5})
	s.UpdateEquity(0.3)
	s.UpdateEquity(-0.1)
	s.RegisterTradeResult(-0.1)
	require.NoError(t, s.SaveFile(path))

	restored, err := LoadFile(path, Config{CooldownTicks: 5})
	require.NoError(t, err)
	assert.Equal(t, s.EquityCurve(), restored.EquityCurve())
	assert.Equal(t, s.CooldownRemaining(), restored.CooldownRemaining())
}

func TestLoadFile_MissingStartsFresh(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"), Config{})
	require.NoError(t, err)
	assert.Empty(t, s.EquityCurve())
	assert.Equal(t, 0, s.CooldownRemaining())
}
