package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"

	"cramdesk/internal/infra"
	"cramdesk/internal/metrics"
	"cramdesk/internal/pdf"
	"cramdesk/internal/sqlinline"
	"cramdesk/internal/storage"
)

const docPollInterval = 2 * time.Second

// maxStoredTextBytes caps the extracted text kept per document so a single
// upload cannot bloat the row past sensible prompt sizes.
const maxStoredTextBytes = 2 << 20

type claimedDocument struct {
	ID         string
	AccountID  string
	StorageKey string
	Language   string
}

type ingestWorker struct {
	ctx    context.Context
	runner *infra.SQLRunner
	logger infra.Logger
	store  *storage.FileStore
}

var errNoDocumentAvailable = errors.New("no document available")

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	store, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	worker := &ingestWorker{
		ctx:    ctx,
		runner: runner,
		logger: logger,
		store:  store,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// Run claims uploaded documents one at a time and extracts their text. The
// claim query locks with SKIP LOCKED, so multiple workers can run side by
// side without double-processing.
func (w *ingestWorker) Run() error {
	ticker := time.NewTicker(docPollInterval)
	defer ticker.Stop()

	for {
		doc, err := w.claim()
		switch {
		case errors.Is(err, errNoDocumentAvailable):
			select {
			case <-w.ctx.Done():
				return w.ctx.Err()
			case <-ticker.C:
			}
			continue
		case err != nil:
			w.logger.Error().Err(err).Msg("worker: claim document failed")
			select {
			case <-w.ctx.Done():
				return w.ctx.Err()
			case <-ticker.C:
			}
			continue
		}

		w.process(doc)

		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}
	}
}

func (w *ingestWorker) claim() (*claimedDocument, error) {
	row := w.runner.QueryRow(w.ctx, sqlinline.QWorkerClaimDocument)
	var doc claimedDocument
	if err := row.Scan(&doc.ID, &doc.AccountID, &doc.StorageKey, &doc.Language); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNoDocumentAvailable
		}
		return nil, err
	}
	return &doc, nil
}

func (w *ingestWorker) process(doc *claimedDocument) {
	started := time.Now()
	path, err := w.store.Path(doc.StorageKey)
	if err != nil {
		w.fail(doc, "stored file unavailable", err)
		return
	}
	extraction, err := pdf.Extract(path)
	if err != nil {
		w.fail(doc, "text extraction failed", err)
		return
	}

	text := extraction.Text
	if len(text) > maxStoredTextBytes {
		text = text[:maxStoredTextBytes]
	}
	_, err = w.runner.Exec(w.ctx, sqlinline.QWorkerMarkDocumentReady, doc.ID, extraction.PageCount, text)
	if err != nil {
		w.logger.Error().Err(err).Str("document_id", doc.ID).Msg("worker: mark document ready failed")
		return
	}
	metrics.DocumentsIngestedTotal.WithLabelValues("ready").Inc()
	w.logger.Info().
		Str("document_id", doc.ID).
		Str("account_id", doc.AccountID).
		Int("pages", extraction.PageCount).
		Dur("took", time.Since(started)).
		Msg("worker: document ready")
}

func (w *ingestWorker) fail(doc *claimedDocument, message string, cause error) {
	w.logger.Error().Err(cause).Str("document_id", doc.ID).Msg("worker: " + message)
	_, err := w.runner.Exec(w.ctx, sqlinline.QWorkerMarkDocumentFailed, doc.ID, message)
	if err != nil {
		w.logger.Error().Err(err).Str("document_id", doc.ID).Msg("worker: mark document failed errored")
	}
	metrics.DocumentsIngestedTotal.WithLabelValues("failed").Inc()
}
