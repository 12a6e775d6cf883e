package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"slipscan/internal"
	"slipscan/internal/config"
	gmailconnector "slipscan/internal/connectors/gmail"
	imapconnector "slipscan/internal/connectors/imap"
	"slipscan/internal/storage"
)

// MailConnector pulls raw messages from a mailbox label.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}

// New builds the connector for provider ("imap" or "gmail").
func New(cfg config.Config, provider string) (MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case gmailconnector.Provider:
		return gmailconnector.NewConnector(cfg)
	case imapconnector.Provider:
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}

type FetchService struct {
	connector MailConnector
	store     *DocumentStore
	logger    *slog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, logger *slog.Logger) *FetchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchService{
		connector: connector,
		store:     NewDocumentStore(db, rawMailDir),
		logger:    logger,
	}
}

// FetchAndStore records fetched messages as documents in status fetched.
// Messages already stored keep their status.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: %w", label, err)
	}

	stored := 0
	for _, msg := range messages {
		doc, err := s.store.Store(msg)
		if err != nil {
			return FetchResult{Fetched: len(messages), Stored: stored}, err
		}
		s.logger.Debug("document stored",
			slog.Int("document_id", doc.ID),
			slog.String("message_id", doc.MessageID),
			slog.String("status", doc.Status),
		)
		stored++
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
