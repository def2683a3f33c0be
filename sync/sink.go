package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap"
)

// Sink reconciles batches of records into one HubSpot object type.
// The first batch it sees provisions the owned property group and properties;
// every batch is then written with a single batch update.
type Sink struct {
	*SyncContext
	api HubspotAPI

	mu                gosync.Mutex
	schemaProvisioned bool
}

// NewSink creates a Sink backed by a HubspotClient.
// An unsupported object type fails here, before any network call.
func NewSink(sc *SyncContext) (*Sink, error) {
	return NewSinkWithAPI(sc, NewHubspotClient(sc, NewDispatcher(sc.Logger)))
}

// NewSinkWithAPI creates a Sink that writes through api.
func NewSinkWithAPI(sc *SyncContext, api HubspotAPI) (*Sink, error) {
	if _, err := sc.Config.ObjectType.Collection(); err != nil {
		return nil, err
	}
	return &Sink{SyncContext: sc, api: api}, nil
}

// SchemaProvisioned reports whether the first batch setup has completed.
func (s *Sink) SchemaProvisioned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schemaProvisioned
}

// OnBatch writes one batch. The batch is all or nothing: any error is logged
// once with its context and returned unmodified.
func (s *Sink) OnBatch(ctx context.Context, records []*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		s.Logger.Debug("skipping empty batch")
		return nil
	}
	s.Logger.Info("processing batch", zap.Int("records", len(records)))

	ids, err := s.process(ctx, records)
	if err != nil {
		s.Logger.Error("failed to push records to HubSpot",
			zap.String("object_type", string(s.Config.ObjectType)),
			zap.Int("records", len(records)),
			zap.Strings("ids", ids),
			zap.Error(err),
		)
		return err
	}
	s.Logger.Info("updated HubSpot objects",
		zap.String("object_type", string(s.Config.ObjectType)),
		zap.Int("records", len(records)),
	)
	return nil
}

func (s *Sink) process(ctx context.Context, records []*Record) ([]string, error) {
	if _, err := s.Config.ObjectType.Collection(); err != nil {
		return nil, err
	}
	if !s.schemaProvisioned {
		if err := s.provisionSchema(ctx, records[0]); err != nil {
			return nil, err
		}
	}

	inputs := make([]ObjectUpdate, 0, len(records))
	ids := make([]string, 0, len(records))
	for i, record := range records {
		id, err := record.ID()
		if err != nil {
			return ids, fmt.Errorf("record %d: %w", i, err)
		}
		ids = append(ids, id)
		inputs = append(inputs, ObjectUpdate{ID: id, Properties: SanitizeRecord(record)})
	}

	s.Logger.Info("pushing updates", zap.Int("records", len(inputs)), zap.Strings("ids", ids))
	return ids, s.api.BatchUpdateObjects(ctx, s.Config.ObjectType, inputs)
}

// provisionSchema creates the owned property group and one property per writable
// field of sample. It runs once per Sink regardless of later batch contents.
func (s *Sink) provisionSchema(ctx context.Context, sample *Record) error {
	objectType := s.Config.ObjectType
	if err := s.api.CreatePropertyGroup(ctx, objectType, PropertyGroupName, PropertyGroupLabel()); err != nil {
		return err
	}

	properties := PropertyDefinitionsFor(sample)
	names := make([]string, 0, len(properties))
	for _, p := range properties {
		names = append(names, p.Name)
	}
	if len(properties) > 0 {
		s.Logger.Info("pushing new properties to HubSpot", zap.Int("count", len(properties)), zap.Strings("properties", names))
		if err := s.api.BatchCreateProperties(ctx, objectType, properties); err != nil {
			return err
		}
	} else {
		s.Logger.Warn("first record has no writable properties", zap.String("prefix", PropertyPrefix))
	}

	s.schemaProvisioned = true
	return nil
}

// PropertyGroupLabel is the display label of the owned property group.
func PropertyGroupLabel() string {
	return strcase.ToCamel(PropertyGroupName)
}
