package sync

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncContext holds shared sync configuration and the logging sink.
// It is immutable after construction and shared by reference with every component.
type SyncContext struct {
	Config         Config
	Logger         *zap.Logger
	RunID          string
	RecordRequests bool
	// RecordingPath is where recorded requests are written when RecordRequests is set.
	RecordingPath string
}

// NewSyncContext creates a SyncContext with a fresh run id attached to every log line.
func NewSyncContext(config Config, logger *zap.Logger) *SyncContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	return &SyncContext{
		Config:         config,
		Logger:         logger.With(zap.String("run_id", runID), zap.String("object_type", string(config.ObjectType))),
		RunID:          runID,
		RecordRequests: config.RecordRequests,
		RecordingPath:  "testdata/.requests",
	}
}
