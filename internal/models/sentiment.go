package models

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

var sentimentColumns = []string{"date", "symbol", "sentiment_score"}

// LoadSentimentCSV reads a (date, symbol) sentiment score table. The header
// must contain the required columns date, symbol, sentiment_score (extra
// columns are ignored); a missing column is a validation error surfaced to
// the caller, never defaulted around.
func LoadSentimentCSV(path string) (*StaticSentiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := ReadSentimentCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadSentimentCSV parses sentiment rows from r into a lookup table.
func ReadSentimentCSV(r io.Reader) (*StaticSentiment, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range sentimentColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	out := &StaticSentiment{}
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		ts, err := time.Parse("2006-01-02", strings.TrimSpace(rec[idx["date"]]))
		if err != nil {
			return nil, fmt.Errorf("row %d: unparseable date %q", row, rec[idx["date"]])
		}
		symbol := strings.ToUpper(strings.TrimSpace(rec[idx["symbol"]]))
		if symbol == "" {
			return nil, fmt.Errorf("row %d: empty symbol", row)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["sentiment_score"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad sentiment_score %q", row, rec[idx["sentiment_score"]])
		}
		out.Set(symbol, ts, score)
	}
	return out, nil
}
