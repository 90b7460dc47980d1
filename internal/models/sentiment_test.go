package models

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSentimentCSV(t *testing.T) {
	data := `date,symbol,sentiment_score
2024-03-01,aapl,0.35
2024-03-01,MSFT,-0.2
2024-03-02,AAPL,0.05
`
	table, err := ReadSentimentCSV(strings.NewReader(data))
	require.NoError(t, err)

	ctx := context.Background()
	day1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	score, ok, err := table.Score(ctx, "AAPL", day1)
	require.NoError(t, err)
	require.True(t, ok, "symbols are normalized to upper case")
	assert.Equal(t, 0.35, score)

	score, ok, err = table.Score(ctx, "MSFT", day1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, -0.2, score)

	// Intraday timestamps resolve to the same daily row.
	_, ok, err = table.Score(ctx, "AAPL", day1.Add(15*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	// No row for this (date, symbol): the miss is reported, not scored.
	_, ok, err = table.Score(ctx, "MSFT", day1.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadSentimentCSV_MissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		missing string
	}{
		{"no score column", "date,symbol", `"sentiment_score"`},
		{"no symbol column", "date,sentiment_score", `"symbol"`},
		{"no date column", "symbol,sentiment_score", `"date"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSentimentCSV(strings.NewReader(tt.header + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "missing required column "+tt.missing)
		})
	}
}

func TestReadSentimentCSV_BadRows(t *testing.T) {
	_, err := ReadSentimentCSV(strings.NewReader("date,symbol,sentiment_score\n03/01/2024,AAPL,0.5\n"))
	assert.ErrorContains(t, err, "unparseable date")

	_, err = ReadSentimentCSV(strings.NewReader("date,symbol,sentiment_score\n2024-03-01,AAPL,hot\n"))
	assert.ErrorContains(t, err, "bad sentiment_score")

	_, err = ReadSentimentCSV(strings.NewReader("date,symbol,sentiment_score\n2024-03-01, ,0.5\n"))
	assert.ErrorContains(t, err, "empty symbol")
}
