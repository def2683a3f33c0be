package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type batchRecorder struct {
	batches [][]string
	out     *bytes.Buffer
	// states holds the output seen when each batch was delivered
	states []string
	err    error
}

func (b *batchRecorder) OnBatch(ctx context.Context, records []*Record) error {
	if b.err != nil {
		return b.err
	}
	var ids []string
	for _, r := range records {
		id, _ := r.ID()
		ids = append(ids, id)
	}
	b.batches = append(b.batches, ids)
	b.states = append(b.states, b.out.String())
	return nil
}

func recordLine(id int) string {
	return fmt.Sprintf(`{"type":"RECORD","stream":"scores","record":{"id":"%d","akkio_score":%d}}`, id, id)
}

func stateLine(n int) string {
	return fmt.Sprintf(`{"type":"STATE","value":{"position":%d}}`, n)
}

func TestRunTargetBatchesAndEchoesState(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"SCHEMA","stream":"scores","schema":{}}`,
		stateLine(0),
		recordLine(1),
		recordLine(2),
		recordLine(3),
		stateLine(3),
		recordLine(4),
		recordLine(5),
		stateLine(5),
	}, "\n")
	var out bytes.Buffer
	handler := &batchRecorder{out: &out}

	summary, err := RunTarget(context.Background(), TargetParams{
		Input:     strings.NewReader(input),
		Output:    &out,
		Handler:   handler,
		BatchSize: 2,
		Logger:    zaptest.NewLogger(t),
	})

	require.NoError(t, err)
	assert.Equal(t, TargetSummary{Records: 5, Batches: 3}, summary)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}, {"5"}}, handler.batches)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"type":"STATE","value":{"position":0}}`, lines[0])
	assert.JSONEq(t, `{"type":"STATE","value":{"position":3}}`, lines[1])
	assert.JSONEq(t, `{"type":"STATE","value":{"position":5}}`, lines[2])

	// state 3 is only echoed once record 3 has been delivered
	assert.NotContains(t, handler.states[1], `"position":3`)
	assert.Contains(t, handler.states[2], `"position":3`)
}

func TestRunTargetStopsOnFirstFailure(t *testing.T) {
	input := strings.Join([]string{recordLine(1), stateLine(1), recordLine(2)}, "\n")
	var out bytes.Buffer
	failure := errors.New("boom")

	summary, err := RunTarget(context.Background(), TargetParams{
		Input:   strings.NewReader(input),
		Output:  &out,
		Handler: &batchRecorder{out: &out, err: failure},
	})

	assert.Same(t, failure, err)
	assert.Equal(t, TargetSummary{}, summary)
	assert.Empty(t, out.String())
}

func TestRunTargetInvalidInput(t *testing.T) {
	var out bytes.Buffer
	_, err := RunTarget(context.Background(), TargetParams{
		Input:   strings.NewReader(recordLine(1) + "\n{"),
		Output:  &out,
		Handler: &batchRecorder{out: &out},
	})
	assert.ErrorContains(t, err, "line 2")
}

func TestRunTargetCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer

	_, err := RunTarget(ctx, TargetParams{
		Input:   strings.NewReader(recordLine(1)),
		Handler: &batchRecorder{out: &out},
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTargetRequiresHandler(t *testing.T) {
	_, err := RunTarget(context.Background(), TargetParams{Input: strings.NewReader("")})
	assert.Error(t, err)
}
