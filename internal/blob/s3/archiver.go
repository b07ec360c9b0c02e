package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// multipartThreshold is the batch size above which uploads switch to the
// multipart manager. Below it a single PutObject is cheaper.
const multipartThreshold = 8 * 1024 * 1024

// OutcomeArchiveStore is the slice of the outcome store the archiver needs:
// read a cutoff window and delete it once the upload landed.
type OutcomeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.TradeOutcome, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver drains old trade outcomes from the primary store to object
// storage as JSONL, then deletes the archived rows. Rows are only deleted
// after the upload succeeded; if the delete itself fails the next drain
// re-uploads them under a fresh key, so the archive may hold duplicates but
// never loses a record.
type Archiver struct {
	writer    domain.BlobWriter
	store     OutcomeArchiveStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewArchiver creates an Archiver. retention is how far back rows are kept
// in the primary store; interval is how often Run drains.
func NewArchiver(writer domain.BlobWriter, store OutcomeArchiveStore, retention, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// Run drains once immediately and then on every interval until ctx is
// cancelled. Drain errors are logged and the loop keeps going.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.Info("archiver started",
		slog.Duration("retention", a.retention),
		slog.Duration("interval", a.interval),
	)

	a.drain(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			a.drain(ctx)
		}
	}
}

func (a *Archiver) drain(ctx context.Context) {
	count, err := a.ArchiveOutcomes(ctx, time.Now().Add(-a.retention))
	if err != nil {
		a.logger.Warn("outcome drain failed", slog.String("error", err.Error()))
		return
	}
	if count > 0 {
		a.logger.Info("outcome drain complete", slog.Int64("count", count))
	}
}

// ArchiveOutcomes uploads all outcomes recorded strictly before the cutoff
// as one JSONL object, deletes them from the store, and returns the number
// archived. A cutoff with no rows is a no-op.
func (a *Archiver) ArchiveOutcomes(ctx context.Context, before time.Time) (int64, error) {
	outcomes, err := a.store.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive outcomes query: %w", err)
	}
	if len(outcomes) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(outcomes)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive outcomes marshal: %w", err)
	}

	path := archivePath(before)
	if int64(len(buf)) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive outcomes upload: %w", err)
	}

	count := int64(len(outcomes))

	deleted, err := a.store.DeleteBefore(ctx, before)
	if err != nil {
		return count, fmt.Errorf("s3blob: archive outcomes delete: %w", err)
	}

	a.logger.Info("outcomes archived",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Int64("deleted", deleted),
		slog.Time("before", before),
	)
	return count, nil
}

// archivePath builds the object key for one drain, partitioned by the
// cutoff's year-month with a per-drain stamp. Drains must not share a key:
// archived rows are deleted from the store, so overwriting an earlier
// object would lose them.
//
//	archive/outcomes/2025-01/20250131T060000Z.jsonl
func archivePath(before time.Time) string {
	u := before.UTC()
	return fmt.Sprintf("archive/outcomes/%s/%s.jsonl", u.Format("2006-01"), u.Format("20060102T150405Z"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
