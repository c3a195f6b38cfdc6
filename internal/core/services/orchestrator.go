package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-server/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.UpdateService = (*Orchestrator)(nil)

// DefaultTaskListLimit is the page size used when none is given.
const DefaultTaskListLimit = 20

// Orchestrator turns update requests into durably queued tasks. Document
// additions are drained to a spool file, decoded on a bounded worker pool
// into a content blob, and only then registered.
type Orchestrator struct {
	tasks    driven.TaskStore
	content  driven.ContentStore
	decoders driven.DecoderRegistry
	config   domain.IngestConfig
	spoolDir string

	listLimit int
	pool      *decodePool

	// inflight holds blobs whose task is not registered yet.
	inflight *xsync.MapOf[domain.ContentID, struct{}]
}

// NewOrchestrator creates an orchestrator and starts its decode workers.
// Spool files are created in spoolDir. Call Close to stop the workers.
func NewOrchestrator(
	tasks driven.TaskStore,
	content driven.ContentStore,
	decoders driven.DecoderRegistry,
	config domain.IngestConfig,
	spoolDir string,
) *Orchestrator {
	return &Orchestrator{
		tasks:     tasks,
		content:   content,
		decoders:  decoders,
		config:    config,
		spoolDir:  spoolDir,
		listLimit: DefaultTaskListLimit,
		pool:      newDecodePool(config.DecodeWorkers, config.QueueSize),
		inflight:  xsync.NewMapOf[domain.ContentID, struct{}](),
	}
}

// SetListLimit sets the page size used by ListTasks when limit is not positive.
func (o *Orchestrator) SetListLimit(n int) {
	if n > 0 {
		o.listLimit = n
	}
}

// Close stops the decode workers after queued jobs finish.
func (o *Orchestrator) Close() {
	o.pool.Close()
}

// Register queues one update against an index.
func (o *Orchestrator) Register(ctx context.Context, indexUID string, update driving.Update) (*domain.Task, error) {
	task, err := o.register(ctx, indexUID, update)
	kind := string(update.Kind)
	switch {
	case err == nil:
		RegistrationCount.WithLabelValues(kind, "ok").Inc()
		logger.Debug("registered task %d (%s) on %s", task.ID, kind, indexUID)
	case domain.IsClientError(err):
		RegistrationCount.WithLabelValues(kind, "rejected").Inc()
		logger.Warn("rejected %s on %s: %v", kind, indexUID, err)
	default:
		RegistrationCount.WithLabelValues(kind, "error").Inc()
		logger.Error("registering %s on %s: %v", kind, indexUID, err)
	}
	return task, err
}

func (o *Orchestrator) register(ctx context.Context, indexUID string, update driving.Update) (*domain.Task, error) {
	if indexUID == "" {
		return nil, fmt.Errorf("%w: index uid is required", domain.ErrInvalidInput)
	}

	var content domain.TaskContent
	switch update.Kind {
	case domain.TaskKindDocumentAddition:
		return o.registerAddition(ctx, indexUID, update)
	case domain.TaskKindDocumentDeletion:
		if len(update.DocumentIDs) == 0 {
			return nil, fmt.Errorf("%w: no document ids to delete", domain.ErrInvalidInput)
		}
		content = domain.TaskContent{
			Kind:             domain.TaskKindDocumentDeletion,
			DocumentDeletion: &domain.DocumentDeletion{IDs: update.DocumentIDs},
		}
	case domain.TaskKindSettingsUpdate:
		if update.Settings == nil {
			return nil, fmt.Errorf("%w: settings update is empty", domain.ErrInvalidInput)
		}
		if err := update.Settings.Validate(); err != nil {
			return nil, err
		}
		content = domain.TaskContent{Kind: domain.TaskKindSettingsUpdate, SettingsUpdate: update.Settings}
	case domain.TaskKindClearDocuments, domain.TaskKindIndexDeletion:
		content = domain.TaskContent{Kind: update.Kind}
	default:
		return nil, fmt.Errorf("%w: task kind %q", domain.ErrUnsupportedType, update.Kind)
	}

	return o.tasks.Register(ctx, indexUID, content)
}

// registerAddition stages the payload into a blob and registers the task
// referencing it. On any failure the blob is discarded and no task exists.
func (o *Orchestrator) registerAddition(
	ctx context.Context, indexUID string, update driving.Update,
) (*domain.Task, error) {
	merge := update.MergeStrategy
	if merge == "" {
		merge = domain.MergeReplace
	}
	if !merge.IsValid() {
		return nil, fmt.Errorf("%w: merge strategy %q", domain.ErrInvalidInput, merge)
	}
	decoder, err := o.decoders.Get(update.Format)
	if err != nil {
		closePayload(update.Payload)
		return nil, err
	}
	if update.Payload == nil {
		return nil, domain.ErrMissingPayload
	}

	spool, err := o.drain(ctx, update.Payload)
	if err != nil {
		return nil, err
	}
	defer removeSpool(spool)

	writer, err := o.content.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating content: %w", err)
	}
	id := writer.ID()
	o.inflight.Store(id, struct{}{})
	defer o.inflight.Delete(id)

	task, err := o.stage(ctx, indexUID, decoder, spool, writer, update.PrimaryKey, merge)
	if err != nil {
		if derr := writer.Discard(); derr != nil {
			logger.Warn("discarding content %s: %v", id, derr)
		}
		return nil, err
	}
	return task, nil
}

func (o *Orchestrator) stage(
	ctx context.Context,
	indexUID string,
	decoder driven.DocumentDecoder,
	spool *os.File,
	writer driven.ContentWriter,
	primaryKey string,
	merge domain.MergeStrategy,
) (*domain.Task, error) {
	var count int
	err := o.pool.Do(ctx, func(ctx context.Context) error {
		if _, err := spool.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewinding spool: %w", err)
		}
		start := time.Now()
		n, err := decoder.Decode(ctx, spool, writer.WriteDocument)
		DecodeDuration.WithLabelValues(decoder.Format().String()).Observe(time.Since(start).Seconds())
		count = n
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := writer.Persist(); err != nil {
		return nil, fmt.Errorf("persisting content: %w", err)
	}
	DocumentsStaged.Add(float64(count))

	return o.tasks.Register(ctx, indexUID, domain.TaskContent{
		Kind: domain.TaskKindDocumentAddition,
		DocumentAddition: &domain.DocumentAddition{
			ContentID:      writer.ID(),
			PrimaryKey:     primaryKey,
			MergeStrategy:  merge,
			DocumentsCount: count,
		},
	})
}

type chunk struct {
	data []byte
	err  error
}

// drain copies the payload into a spool file. A reader goroutine feeds
// chunks through a bounded channel, so a stalled or oversized upload is
// abandoned without buffering it in memory. An empty payload is
// domain.ErrMissingPayload.
func (o *Orchestrator) drain(ctx context.Context, payload io.Reader) (*os.File, error) {
	spool, err := os.CreateTemp(o.spoolDir, "payload-*")
	if err != nil {
		return nil, fmt.Errorf("creating spool: %w", err)
	}

	size, err := o.copyChunks(ctx, payload, spool)
	if err == nil && size == 0 {
		err = domain.ErrMissingPayload
	}
	if err != nil {
		closePayload(payload)
		removeSpool(spool)
		return nil, err
	}
	PayloadBytes.Add(float64(size))
	return spool, nil
}

func (o *Orchestrator) copyChunks(ctx context.Context, payload io.Reader, dst io.Writer) (int64, error) {
	chunks := make(chan chunk, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, o.config.ChunkSize)
			n, err := payload.Read(buf)
			if n > 0 {
				select {
				case chunks <- chunk{data: buf[:n]}:
				case <-done:
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case chunks <- chunk{err: err}:
				case <-done:
				}
				return
			}
		}
	}()

	timer := time.NewTimer(o.config.ChunkTimeout)
	defer timer.Stop()

	var size int64
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				return size, nil
			}
			if c.err != nil {
				return size, fmt.Errorf("%w: %v", domain.ErrPayloadTransport, c.err)
			}
			size += int64(len(c.data))
			if size > o.config.MaxPayloadSize {
				return size, fmt.Errorf("%w: limit is %d bytes", domain.ErrPayloadTooLarge, o.config.MaxPayloadSize)
			}
			if _, err := dst.Write(c.data); err != nil {
				return size, fmt.Errorf("writing spool: %w", err)
			}
			timer.Reset(o.config.ChunkTimeout)
		case <-timer.C:
			return size, fmt.Errorf("%w: no data for %s", domain.ErrPayloadTimeout, o.config.ChunkTimeout)
		case <-ctx.Done():
			return size, ctx.Err()
		}
	}
}

// GetTask returns a task visible through the filter.
func (o *Orchestrator) GetTask(ctx context.Context, id domain.TaskID, filter *domain.TaskFilter) (*domain.Task, error) {
	return o.tasks.Get(ctx, id, filter)
}

// ListTasks returns tasks most recent first. A non-positive limit uses
// the configured page size.
func (o *Orchestrator) ListTasks(
	ctx context.Context, filter *domain.TaskFilter, limit int, from *domain.TaskID,
) ([]domain.Task, error) {
	if limit <= 0 {
		limit = o.listLimit
	}
	return o.tasks.List(ctx, filter, limit, from)
}

// SweepContent deletes blobs that no enqueued or processing task references
// and whose registration is not in flight.
//
// The order matters: blobs are listed before the in-flight set is copied,
// and the in-flight set is copied before active tasks are read. A blob
// listed here either is still in flight when copied, or its task committed
// before the active tasks are read.
func (o *Orchestrator) SweepContent(ctx context.Context) (int, error) {
	ids, err := o.content.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing content: %w", err)
	}

	inflight := make(map[domain.ContentID]struct{})
	o.inflight.Range(func(id domain.ContentID, _ struct{}) bool {
		inflight[id] = struct{}{}
		return true
	})

	active, err := o.tasks.ActiveContent(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading active content: %w", err)
	}

	removed := 0
	for _, id := range ids {
		if _, ok := active[id]; ok {
			continue
		}
		if _, ok := inflight[id]; ok {
			continue
		}
		if err := o.content.Delete(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}

	ContentSwept.Add(float64(removed))
	logger.Info("content sweep removed %d of %d blobs", removed, len(ids))
	return removed, nil
}

// closePayload closes the payload if it can be closed, unblocking a reader
// goroutine stuck in Read.
func closePayload(payload io.Reader) {
	if c, ok := payload.(io.Closer); ok {
		_ = c.Close()
	}
}

func removeSpool(f *os.File) {
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("removing spool %s: %v", name, err)
	}
}
