package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"lifequest-api/logger"
	"lifequest-api/models"
)

// ObjectStore is where rendered exports are uploaded.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type ExportResult struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Rows  int    `json:"rows"`
	Bytes int    `json:"bytes"`
}

var exportHeader = []string{
	"id", "created_at", "entity_type", "entity_id", "xp_amount", "source_type", "source_id", "reason",
}

type LedgerExporter struct {
	Ledger *XpLedger
	Store  ObjectStore
	Log    *logger.Logger
	Now    func() time.Time
}

func NewLedgerExporter(ledger *XpLedger, store ObjectStore, log *logger.Logger) *LedgerExporter {
	return &LedgerExporter{Ledger: ledger, Store: store, Log: log.With("service", "LedgerExporter"), Now: utcNow}
}

// Export uploads the user's full ledger, oldest first, as CSV.
func (e *LedgerExporter) Export(ctx context.Context, userID string) (*ExportResult, error) {
	if e.Store == nil {
		return nil, ErrObjectStoreDisabled
	}
	if userID == "" {
		return nil, invalidInput("user id is required")
	}

	grants, err := e.Ledger.AllForUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	body, err := RenderLedgerCSV(grants)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/xp/%s/%s.csv", userID, e.Now().Format("20060102T150405Z"))
	url, err := e.Store.PutObject(ctx, key, "text/csv", body)
	if err != nil {
		return nil, fmt.Errorf("upload ledger export: %w", err)
	}
	e.Log.Info("ledger exported", "user_id", userID, "rows", len(grants), "key", key)
	return &ExportResult{Key: key, URL: url, Rows: len(grants), Bytes: len(body)}, nil
}

func RenderLedgerCSV(grants []models.XpGrant) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, g := range grants {
		err := w.Write([]string{
			g.ID,
			g.CreatedAt.UTC().Format(time.RFC3339),
			string(g.EntityType),
			g.EntityID,
			strconv.FormatInt(g.XPAmount, 10),
			string(g.SourceType),
			deref(g.SourceID),
			deref(g.Reason),
		})
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
