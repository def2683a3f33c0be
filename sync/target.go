package sync

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// BatchHandler consumes one batch at a time. Sink is the production implementation.
type BatchHandler interface {
	OnBatch(ctx context.Context, records []*Record) error
}

var _ BatchHandler = (*Sink)(nil)

// TargetParams wires the Singer harness to a handler.
type TargetParams struct {
	Input     io.Reader
	Output    io.Writer
	Handler   BatchHandler
	BatchSize int
	Logger    *zap.Logger
}

// TargetSummary counts what a run delivered.
type TargetSummary struct {
	Records int
	Batches int
}

// RunTarget reads Singer messages from Input, hands RECORDs to Handler in
// batches of at most BatchSize, strictly one batch at a time, and echoes the
// latest STATE to Output once every record before it has been delivered.
// The first failing batch stops the run.
func RunTarget(ctx context.Context, params TargetParams) (TargetSummary, error) {
	var summary TargetSummary
	if params.Handler == nil {
		return summary, errors.New("no batch handler")
	}
	size := params.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	if size > MaxBatchSize {
		size = MaxBatchSize
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	output := params.Output
	if output == nil {
		output = io.Discard
	}

	batch := make([]*Record, 0, size)
	var pendingState string

	flush := func() error {
		if len(batch) > 0 {
			if err := params.Handler.OnBatch(ctx, batch); err != nil {
				return err
			}
			summary.Batches++
			summary.Records += len(batch)
			batch = make([]*Record, 0, size)
		}
		if pendingState != "" {
			line, err := StateLine(pendingState)
			if err != nil {
				return fmt.Errorf("failed to render state: %w", err)
			}
			if _, err := fmt.Fprintln(output, line); err != nil {
				return fmt.Errorf("failed to write state: %w", err)
			}
			pendingState = ""
		}
		return nil
	}

	reader := NewMessageReader(params.Input)
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		msg, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}

		switch msg.Type {
		case RecordMessage:
			batch = append(batch, msg.Record)
			if len(batch) >= size {
				if err := flush(); err != nil {
					return summary, err
				}
			}
		case StateMessage:
			pendingState = msg.Value
			if len(batch) == 0 {
				if err := flush(); err != nil {
					return summary, err
				}
			}
		case SchemaMessage:
			logger.Debug("ignoring schema message", zap.String("stream", msg.Stream))
		default:
			logger.Debug("ignoring message", zap.String("type", string(msg.Type)))
		}
	}

	if err := flush(); err != nil {
		return summary, err
	}
	logger.Info("finished run", zap.Int("records", summary.Records), zap.Int("batches", summary.Batches))
	return summary, nil
}
