package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"slipscan/internal"
	"slipscan/internal/config"
	"slipscan/internal/storage"
)

const (
	RunKindParse       = "parse"
	RunKindDocument    = "document"
	RunKindIngredients = "ingredients"
)

// ProcessingService computes slips and ingredient changes and writes them
// only when cfg.Apply is set. db may be nil for dry runs.
type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	parser *SlipParser
	logger *slog.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, parser *SlipParser, logger *slog.Logger) *ProcessingService {
	if parser == nil {
		parser = NewSlipParser(NewLineNormalizer(cfg.FoldWidth), nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessingService{db: db, cfg: cfg, parser: parser, logger: logger}
}

type ProcessResult struct {
	DocumentID int
	Slips      []internal.Slip
	Items      int
	Skipped    bool
	Applied    bool
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	doc, err := s.db.MustDocumentByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessDocument(doc)
}

// ProcessPending walks fetched documents. Without apply their status does not
// move, so the next call sees them again.
func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListDocumentsByStatus(storage.StatusFetched, provider, limit)
	if err != nil {
		return 0, 0, err
	}
	processedDocs := 0
	processedSlips := 0
	for _, doc := range pending {
		res, err := s.ProcessDocument(doc)
		if err != nil {
			return processedDocs, processedSlips, err
		}
		processedDocs++
		processedSlips += len(res.Slips)
	}
	return processedDocs, processedSlips, nil
}

func (s *ProcessingService) ProcessDocument(doc internal.DocumentRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(doc.RawRef)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("read document %d: %w", doc.ID, err)
	}

	email, err := ExtractDocument(raw)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("extract document %d: %w", doc.ID, err)
	}

	logger := s.logger.With(slog.Int("document_id", doc.ID), slog.String("provider", doc.Provider))
	detect := DetectDeliverySlip(firstNonEmpty(email.Subject, doc.Subject), email.Text, email.Lines, email.AttachmentNames)
	if !detect.IsSlip {
		logger.Info("document skipped", slog.Float64("score", detect.Score), slog.String("reason", detect.Reason))
		res := ProcessResult{DocumentID: doc.ID, Skipped: true}
		if s.cfg.Apply {
			if err := s.db.UpdateDocumentStatus(doc.ID, storage.StatusSkipped); err != nil {
				return res, err
			}
			s.recordRun(RunKindDocument, &doc.ID, start, map[string]int{"lines": len(email.Lines), "slips": 0, "items": 0})
			res.Applied = true
		}
		return res, nil
	}

	slips, err := s.parser.Parse(email.Lines)
	if err != nil && !errors.Is(err, ErrEmptyInput) {
		return ProcessResult{}, err
	}

	res := ProcessResult{DocumentID: doc.ID, Slips: slips, Items: countItems(slips)}
	logger.Info("document parsed", slog.Int("slips", len(slips)), slog.Int("items", res.Items), slog.Bool("apply", s.cfg.Apply))
	if !s.cfg.Apply {
		return res, nil
	}

	if err := s.storeSlips(&doc.ID, slips); err != nil {
		return res, err
	}
	if err := s.db.UpdateDocumentStatus(doc.ID, storage.StatusProcessed); err != nil {
		return res, err
	}
	s.recordRun(RunKindDocument, &doc.ID, start, map[string]int{"lines": len(email.Lines), "slips": len(slips), "items": res.Items})
	res.Applied = true
	return res, nil
}

// ProcessLines parses one in-memory document. documentID links the stored
// slips to a document row and may be nil.
func (s *ProcessingService) ProcessLines(lines []string, documentID *int) (ProcessResult, error) {
	start := time.Now()
	slips, err := s.parser.Parse(lines)
	if err != nil {
		return ProcessResult{}, err
	}

	res := ProcessResult{Slips: slips, Items: countItems(slips)}
	if documentID != nil {
		res.DocumentID = *documentID
	}
	if !s.cfg.Apply {
		s.logger.Debug("dry run, nothing written", slog.Int("slips", len(slips)))
		return res, nil
	}

	if err := s.storeSlips(documentID, slips); err != nil {
		return res, err
	}
	s.recordRun(RunKindParse, documentID, start, map[string]int{"lines": len(lines), "slips": len(slips), "items": res.Items})
	res.Applied = true
	return res, nil
}

// NormalizeStoredIngredients runs every stored ingredient through the
// quantity pipeline. Changed rows are written back only with apply.
func (s *ProcessingService) NormalizeStoredIngredients() ([]internal.IngredientChange, error) {
	start := time.Now()
	list, err := s.db.ListIngredients()
	if err != nil {
		return nil, err
	}

	changes := NormalizeIngredients(s.parser.Units, list)
	changed := CountChanged(changes)
	s.logger.Info("ingredients normalized", slog.Int("total", len(changes)), slog.Int("changed", changed), slog.Bool("apply", s.cfg.Apply))
	if !s.cfg.Apply {
		return changes, nil
	}

	for _, c := range changes {
		if !c.Changed {
			continue
		}
		if err := s.db.UpdateIngredientQuantity(c.After.ID, c.After.Quantity, c.After.Unit); err != nil {
			return changes, fmt.Errorf("update ingredient %d: %w", c.After.ID, err)
		}
	}
	s.recordRun(RunKindIngredients, nil, start, map[string]int{"total": len(changes), "changed": changed})
	return changes, nil
}

func (s *ProcessingService) storeSlips(documentID *int, slips []internal.Slip) error {
	if s.db == nil {
		return errors.New("apply requested without a database")
	}
	for _, slip := range slips {
		if err := s.db.UpsertSlip(documentID, slip); err != nil {
			return fmt.Errorf("store slip %s: %w", slip.SlipNo, err)
		}
	}
	return nil
}

func (s *ProcessingService) recordRun(kind string, documentID *int, start time.Time, counts map[string]int) {
	timings := map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
	if err := s.db.InsertRun(uuid.NewString(), kind, documentID, s.cfg.Apply, timings, counts); err != nil {
		s.logger.Warn("failed to record run", slog.String("kind", kind), slog.Any("error", err))
	}
}

func countItems(slips []internal.Slip) int {
	n := 0
	for _, slip := range slips {
		n += len(slip.Items)
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
