package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"slipscan/internal/config"
	"slipscan/internal/connectors"
	"slipscan/internal/pipeline"
	"slipscan/internal/storage"
)

// MetadataLastCycle holds the RFC 3339 time of the last applied cycle.
const MetadataLastCycle = "listener_last_cycle"

type Service struct {
	db        *storage.DB
	cfg       config.Config
	processor *pipeline.ProcessingService
	logger    *slog.Logger

	// connector is built lazily on the first cycle unless set up front.
	connector connectors.MailConnector
	mu        sync.Mutex
}

func NewService(db *storage.DB, cfg config.Config, processor *pipeline.ProcessingService, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if processor == nil {
		processor = pipeline.NewProcessingService(db, cfg, nil, logger)
	}
	return &Service{db: db, cfg: cfg, processor: processor, logger: logger}
}

// WithConnector replaces the configured provider's connector.
func (s *Service) WithConnector(c connectors.MailConnector) *Service {
	s.connector = c
	return s
}

// Run schedules the cycle on cfg.ListenerSchedule, runs it once right away
// and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug))))
	if _, err := c.AddFunc(s.cfg.ListenerSchedule, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid listener schedule %q: %w", s.cfg.ListenerSchedule, err)
	}

	s.tick(ctx)
	c.Start()
	s.logger.Info("listener started",
		slog.String("schedule", s.cfg.ListenerSchedule),
		slog.String("provider", s.provider()),
		slog.Bool("apply", s.cfg.Apply),
	)

	<-ctx.Done()
	s.logger.Info("listener stopping")
	<-c.Stop().Done()
	return nil
}

// tick skips when the previous cycle is still running.
func (s *Service) tick(ctx context.Context) {
	if !s.mu.TryLock() {
		s.logger.Debug("previous cycle still running")
		return
	}
	defer s.mu.Unlock()

	if err := s.RunCycle(ctx); err != nil {
		s.logger.Error("listener cycle failed", slog.Any("error", err))
	}
}

// RunCycle fetches, processes pending documents and, when enabled, exports
// processed ones.
func (s *Service) RunCycle(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	provider := s.provider()
	if s.connector == nil {
		mailConnector, err := connectors.New(s.cfg, provider)
		if err != nil {
			return err
		}
		s.connector = mailConnector
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, s.connector, s.logger)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.ListenerLabel, s.cfg.ListenerFetchMax)
	if err != nil {
		return err
	}

	processedDocs, processedSlips, err := s.processor.ProcessPending(s.cfg.ListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	exported := 0
	if s.cfg.ListenerAutoExport && s.cfg.Apply {
		exported, err = s.exportProcessed(provider)
		if err != nil {
			return err
		}
	}

	if s.cfg.Apply {
		if err := s.db.SetMetadata(MetadataLastCycle, time.Now().UTC().Format(time.RFC3339)); err != nil {
			s.logger.Warn("failed to record cycle time", slog.Any("error", err))
		}
	}

	s.logger.Info("listener cycle done",
		slog.String("provider", provider),
		slog.Int("fetched", fetchResult.Fetched),
		slog.Int("stored", fetchResult.Stored),
		slog.Int("processed", processedDocs),
		slog.Int("slips", processedSlips),
		slog.Int("exported", exported),
	)
	return nil
}

func (s *Service) provider() string {
	return strings.ToLower(strings.TrimSpace(s.cfg.ListenerProvider))
}

func (s *Service) exportProcessed(provider string) (int, error) {
	docs, err := s.db.ListDocumentsByStatus(storage.StatusProcessed, provider, 200)
	if err != nil {
		return 0, err
	}

	exported := 0
	for _, doc := range docs {
		rows, err := s.db.GetSlipExportRows(doc.ID)
		if err != nil {
			return exported, err
		}
		// Nothing to export. Leaving the document processed would keep it at
		// the head of every later batch.
		if len(rows) == 0 {
			s.logger.Info("no slip rows, document skipped", slog.Int("document_id", doc.ID))
			if err := s.db.UpdateDocumentStatus(doc.ID, storage.StatusSkipped); err != nil {
				return exported, err
			}
			continue
		}
		filename := fmt.Sprintf("%d_%s.xlsx", doc.ID, sanitizeMessageID(doc.MessageID))
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
		if err := pipeline.ExportSlipsToXLSX(rows, outputPath); err != nil {
			return exported, err
		}
		if err := s.db.UpdateDocumentStatus(doc.ID, storage.StatusExported); err != nil {
			return exported, err
		}
		exported++
	}
	return exported, nil
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "@", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
