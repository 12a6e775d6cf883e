package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"slipscan/internal"
	"slipscan/internal/storage"
)

// DocumentStore keeps each raw message on disk under its content hash and
// points a documents row at it.
type DocumentStore struct {
	db         *storage.DB
	rawMailDir string
}

func NewDocumentStore(db *storage.DB, rawMailDir string) *DocumentStore {
	return &DocumentStore{db: db, rawMailDir: rawMailDir}
}

func (s *DocumentStore) Store(msg internal.FetchedMailMessage) (internal.DocumentRow, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.DocumentRow{}, err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.DocumentRow{}, err
		}
	}

	return s.db.UpsertDocument(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, storage.StatusFetched)
}
