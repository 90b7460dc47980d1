package marketdata

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Bar is one chronological OHLCV row for a single symbol.
// Bars are immutable once produced.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Series is the chronological bar history for one symbol.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// NewSeries normalizes the symbol and validates chronology.
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	s := &Series{Symbol: strings.ToUpper(strings.TrimSpace(symbol)), Bars: bars}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate enforces the Observation contract: a non-empty symbol and strictly
// increasing timestamps. Duplicate or out-of-order timestamps are validation
// errors, never silently reordered.
func (s *Series) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("series has empty symbol")
	}
	for i, b := range s.Bars {
		if b.Timestamp.IsZero() {
			return fmt.Errorf("%s: bar %d has zero timestamp", s.Symbol, i)
		}
		if !isFiniteBar(b) {
			return fmt.Errorf("%s: bar %d at %s has non-finite OHLCV", s.Symbol, i, b.Timestamp.Format(time.RFC3339))
		}
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("%s: bar %d at %s has non-positive price", s.Symbol, i, b.Timestamp.Format(time.RFC3339))
		}
		if b.Volume < 0 {
			return fmt.Errorf("%s: bar %d at %s has negative volume", s.Symbol, i, b.Timestamp.Format(time.RFC3339))
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1].Timestamp
		if b.Timestamp.Equal(prev) {
			return fmt.Errorf("%s: duplicate timestamp %s at row %d", s.Symbol, b.Timestamp.Format(time.RFC3339), i)
		}
		if b.Timestamp.Before(prev) {
			return fmt.Errorf("%s: non-monotonic timestamp %s at row %d", s.Symbol, b.Timestamp.Format(time.RFC3339), i)
		}
	}
	return nil
}

// Append adds a bar, enforcing chronology against the current tail.
func (s *Series) Append(b Bar) error {
	if n := len(s.Bars); n > 0 {
		last := s.Bars[n-1].Timestamp
		if !b.Timestamp.After(last) {
			return fmt.Errorf("%s: bar at %s does not advance series tail %s",
				s.Symbol, b.Timestamp.Format(time.RFC3339), last.Format(time.RFC3339))
		}
	}
	if !isFiniteBar(b) {
		return fmt.Errorf("%s: appended bar has non-finite OHLCV", s.Symbol)
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("%s: appended bar has non-positive price", s.Symbol)
	}
	if b.Volume < 0 {
		return fmt.Errorf("%s: appended bar has negative volume", s.Symbol)
	}
	s.Bars = append(s.Bars, b)
	return nil
}

// Trim drops the oldest bars so at most max remain.
func (s *Series) Trim(max int) {
	if max > 0 && len(s.Bars) > max {
		s.Bars = s.Bars[len(s.Bars)-max:]
	}
}

// Closes returns the close column.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volume column.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

func isFiniteBar(b Bar) bool {
	for _, v := range [5]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
