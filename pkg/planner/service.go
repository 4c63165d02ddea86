// Package planner runs one dock planning session: it owns the record store
// and ties imports, remote loads, exports and persistence to it.
package planner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muelle-planner/platform/pkg/archive"
	"github.com/muelle-planner/platform/pkg/codec"
	"github.com/muelle-planner/platform/pkg/common/kafka"
	"github.com/muelle-planner/platform/pkg/common/logger"
	"github.com/muelle-planner/platform/pkg/common/models"
	"github.com/muelle-planner/platform/pkg/dock"
	"github.com/muelle-planner/platform/pkg/ingestion"
	"github.com/muelle-planner/platform/pkg/observability/metrics"
	"github.com/muelle-planner/platform/pkg/query"
	"github.com/muelle-planner/platform/pkg/remote"
	"github.com/muelle-planner/platform/pkg/schema"
	"github.com/muelle-planner/platform/pkg/storage"
	"github.com/muelle-planner/platform/pkg/terminology"
)

// EventSource tags every event the planner publishes.
const EventSource = "planner-service"

var (
	ErrRemoteDisabled  = errors.New("remote loading not configured")
	ErrArchiveDisabled = errors.New("export archive not configured")
)

type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

type DocumentFetcher interface {
	Fetch(ctx context.Context, locator string) (codec.Document, error)
}

type Archiver interface {
	Put(ctx context.Context, variant schema.Variant, now time.Time, document, csv []byte) (archive.Result, error)
}

// Options wires the optional collaborators. Nil fields disable the feature.
type Options struct {
	Variant   schema.Variant
	Catalog   terminology.Catalog
	Snapshots storage.SnapshotStore
	Events    EventPublisher
	Remote    DocumentFetcher
	Archive   Archiver
	Now       func() time.Time
}

type Service struct {
	// mu serializes mutations so snapshots and events follow store order.
	mu        sync.Mutex
	store     *dock.Store
	importer  *ingestion.Importer
	snapshots storage.SnapshotStore
	events    EventPublisher
	remote    DocumentFetcher
	archive   Archiver
	now       func() time.Time
}

func NewService(opts Options) *Service {
	if opts.Snapshots == nil {
		opts.Snapshots = storage.NewMemoryStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     dock.NewStore(opts.Variant),
		importer:  ingestion.NewImporter(opts.Catalog),
		snapshots: opts.Snapshots,
		events:    opts.Events,
		remote:    opts.Remote,
		archive:   opts.Archive,
		now:       opts.Now,
	}
}

// ImportSummary describes an applied import or load.
type ImportSummary struct {
	Variant   schema.Variant `json:"variant"`
	Imported  int            `json:"imported"`
	Skipped   int            `json:"skipped,omitempty"`
	HeaderRow int            `json:"headerRow,omitempty"`
	NextID    int            `json:"nextId"`
}

// Bootstrap restores the last snapshot. A missing or unreadable snapshot
// starts an empty board; it never fails the service.
func (s *Service) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshots.Load(ctx)
	switch {
	case err != nil:
		logger.Log.WithError(err).Warn("snapshot unreadable, starting with an empty board")
	case snap == nil:
		logger.Log.Info("no snapshot found, starting with an empty board")
	default:
		if err := s.store.Restore(snap.State()); err != nil {
			logger.Log.WithError(err).Warn("snapshot rejected, starting with an empty board")
		} else {
			logger.Log.WithFields(map[string]interface{}{
				"records":    s.store.Len(),
				"variant":    s.store.Variant(),
				"last_saved": snap.LastSaved,
			}).Info("board restored from snapshot")
		}
	}
	s.observe()
}

func (s *Service) Add(ctx context.Context, in dock.Input) (dock.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Add(in)
	if err != nil {
		return dock.Record{}, err
	}
	s.committed(ctx, models.EventRecordAdded, map[string]interface{}{"record_id": rec.ID, "carrier": rec.Carrier})
	return rec, nil
}

func (s *Service) Update(ctx context.Context, id int, in dock.Input) (dock.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Update(id, in)
	if err != nil {
		return dock.Record{}, err
	}
	s.committed(ctx, models.EventRecordUpdated, map[string]interface{}{"record_id": rec.ID})
	return rec, nil
}

// Delete removes a record. The caller is responsible for having confirmed it.
func (s *Service) Delete(ctx context.Context, id int) (dock.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Delete(id)
	if err != nil {
		return dock.Record{}, err
	}
	s.committed(ctx, models.EventRecordDeleted, map[string]interface{}{"record_id": rec.ID})
	return rec, nil
}

func (s *Service) Accept(ctx context.Context, id int) (dock.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Accept(id)
	if err != nil {
		return dock.Record{}, err
	}
	s.committed(ctx, models.EventRecordAccepted, map[string]interface{}{"record_id": rec.ID})
	return rec, nil
}

func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	s.committed(ctx, models.EventBoardCleared, nil)
}

func (s *Service) SetVariant(ctx context.Context, v schema.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetVariant(v); err != nil {
		return err
	}
	s.committed(ctx, models.EventVariantChanged, map[string]interface{}{"variant": v})
	return nil
}

func (s *Service) Get(id int) (dock.Record, error) {
	return s.store.Get(id)
}

func (s *Service) Variant() schema.Variant {
	return s.store.Variant()
}

// ImportGrid replaces the board with the records of a sheet and switches to
// the layout its header describes. On error the board is untouched.
func (s *Service) ImportGrid(ctx context.Context, grid ingestion.Grid) (ImportSummary, error) {
	res, err := s.importer.Import(grid)
	if err != nil {
		metrics.ObserveImport(err)
		return ImportSummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.store.Commit(res.Records, res.Variant)
	metrics.ObserveImport(err)
	if err != nil {
		return ImportSummary{}, err
	}

	summary := ImportSummary{
		Variant:   res.Variant,
		Imported:  len(records),
		Skipped:   res.Skipped,
		HeaderRow: res.HeaderRow,
		NextID:    s.store.NextID(),
	}
	s.committed(ctx, models.EventBoardReplaced, map[string]interface{}{
		"origin":  "table",
		"variant": summary.Variant,
		"count":   summary.Imported,
	})
	return summary, nil
}

// ImportFile reads a csv, xlsx or json grid. An empty format is guessed from
// the file name.
func (s *Service) ImportFile(ctx context.Context, name, format string, r io.Reader) (ImportSummary, error) {
	if format == "" {
		guessed, err := ingestion.FormatFromName(name)
		if err != nil {
			return ImportSummary{}, err
		}
		format = guessed
	}
	grid, err := ingestion.ReadFormat(format, r)
	if err != nil {
		metrics.ObserveImport(err)
		return ImportSummary{}, err
	}
	logger.Log.WithFields(map[string]interface{}{"file": name, "format": format, "rows": len(grid)}).Info("table received")
	return s.ImportGrid(ctx, grid)
}

// ImportDocument applies a portable document.
func (s *Service) ImportDocument(ctx context.Context, r io.Reader) (ImportSummary, error) {
	doc, err := codec.DecodeDocument(r)
	if err != nil {
		metrics.ObserveImport(err)
		return ImportSummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	summary, err := s.applyDocument(ctx, doc, "document")
	metrics.ObserveImport(err)
	return summary, err
}

// LoadRemote fetches a document and applies it. The fetch runs without
// holding the session lock; when two loads race the last one applied wins.
func (s *Service) LoadRemote(ctx context.Context, locator string) (ImportSummary, error) {
	if s.remote == nil {
		return ImportSummary{}, ErrRemoteDisabled
	}
	doc, err := s.remote.Fetch(ctx, locator)
	if err != nil {
		metrics.ObserveRemoteLoad(err)
		return ImportSummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	summary, err := s.applyDocument(ctx, doc, "remote")
	if err != nil {
		err = &remote.RemoteLoadError{Locator: locator, Err: err}
	}
	metrics.ObserveRemoteLoad(err)
	return summary, err
}

// ApplyDocumentEvent applies a document carried in the payload of a bus
// event.
func (s *Service) ApplyDocumentEvent(ctx context.Context, event models.Event) (ImportSummary, error) {
	doc, err := codec.ParseDocument(event.Payload)
	if err != nil {
		metrics.ObserveImport(err)
		return ImportSummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	summary, err := s.applyDocument(ctx, doc, "bus")
	metrics.ObserveImport(err)
	return summary, err
}

// applyDocument must be called with s.mu held. A document without a variant
// keeps the active one.
func (s *Service) applyDocument(ctx context.Context, doc codec.Document, origin string) (ImportSummary, error) {
	variant := doc.Variant
	if variant == "" {
		variant = s.store.Variant()
	}
	records, err := s.store.ReplaceAll(doc.Records, variant)
	if err != nil {
		return ImportSummary{}, &codec.DocumentParseError{Err: err}
	}

	summary := ImportSummary{Variant: variant, Imported: len(records), NextID: s.store.NextID()}
	s.committed(ctx, models.EventBoardReplaced, map[string]interface{}{
		"origin":  origin,
		"variant": variant,
		"count":   summary.Imported,
	})
	return summary, nil
}

// View is the filtered board as shown to clients. Records are projected on
// the active layout; Stats always cover the whole board.
type View struct {
	Variant schema.Variant     `json:"variant"`
	Fields  []schema.Field     `json:"fields"`
	Filter  query.StatusFilter `json:"filter"`
	Search  string             `json:"search,omitempty"`
	Records []dock.Record      `json:"records"`
	Stats   query.Stats        `json:"stats"`
}

func (s *Service) View(filter query.StatusFilter, term string) View {
	st := s.store.State()
	matched := query.Filter(st.Records, filter, term)
	for i := range matched {
		matched[i] = matched[i].Project(st.Variant)
	}
	if filter == "" {
		filter = query.FilterAll
	}
	return View{
		Variant: st.Variant,
		Fields:  schema.FieldsFor(st.Variant),
		Filter:  filter,
		Search:  term,
		Records: matched,
		Stats:   query.Summarize(st.Records),
	}
}

// ExportDocument writes the portable document and returns its file name.
func (s *Service) ExportDocument(w io.Writer) (string, error) {
	st := s.store.State()
	now := s.now()
	if err := codec.EncodeDocument(w, codec.NewDocument(st.Variant, st.Records, now)); err != nil {
		return "", err
	}
	return codec.ExportFilename(codec.KindDocument, st.Variant, now), nil
}

// ExportCSV writes the delimited export of the active layout and returns its
// file name.
func (s *Service) ExportCSV(w io.Writer) (string, error) {
	st := s.store.State()
	if err := codec.WriteCSV(w, st.Variant, st.Records); err != nil {
		return "", err
	}
	return codec.ExportFilename(codec.KindCSV, st.Variant, s.now()), nil
}

// Archive uploads both exports of the current board.
func (s *Service) Archive(ctx context.Context) (archive.Result, error) {
	if s.archive == nil {
		return archive.Result{}, ErrArchiveDisabled
	}
	st := s.store.State()
	now := s.now()

	var doc, csv bytes.Buffer
	if err := codec.EncodeDocument(&doc, codec.NewDocument(st.Variant, st.Records, now)); err != nil {
		return archive.Result{}, err
	}
	if err := codec.WriteCSV(&csv, st.Variant, st.Records); err != nil {
		return archive.Result{}, err
	}
	res, err := s.archive.Put(ctx, st.Variant, now, doc.Bytes(), csv.Bytes())
	if err != nil {
		return archive.Result{}, fmt.Errorf("archiving board: %w", err)
	}
	return res, nil
}

// committed runs the side effects of a successful mutation. Failures are
// logged and counted, never returned. Must be called with s.mu held.
func (s *Service) committed(ctx context.Context, eventType string, data map[string]interface{}) {
	st := s.store.State()
	if err := s.snapshots.Save(ctx, storage.NewSnapshot(st, s.now())); err != nil {
		metrics.SnapshotFailed()
		logger.Log.WithError(err).WithField("event_type", eventType).Error("failed to save snapshot")
	}

	if s.events != nil {
		if data == nil {
			data = map[string]interface{}{}
		}
		data["total"] = len(st.Records)
		if err := s.events.Publish(ctx, kafka.NewEvent(eventType, EventSource, data)); err != nil {
			metrics.EventPublishFailed()
			logger.Log.WithError(err).WithField("event_type", eventType).Warn("failed to publish board event")
		}
	}
	s.observeState(st)
}

func (s *Service) observe() {
	s.observeState(s.store.State())
}

func (s *Service) observeState(st dock.State) {
	stats := query.Summarize(st.Records)
	metrics.ObserveBoard(stats.Total, stats.Pending, stats.Accepted, stats.Incidents)
}
