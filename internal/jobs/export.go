package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/storage"
	"server/pkg/zip"
)

const exportSnippetLimit = 5000

// ExportHandler archives the user's snippets and reflections into a zip file
// on the artifact store and returns its storage key.
type ExportHandler struct {
	snippets domain.SnippetRepository
	store    *storage.FileStore
}

// NewExportHandler creates the bulk export handler.
func NewExportHandler(snippets domain.SnippetRepository, store *storage.FileStore) *ExportHandler {
	return &ExportHandler{snippets: snippets, store: store}
}

// Type implements Handler.
func (h *ExportHandler) Type() domain.OperationType {
	return domain.OperationBulkExport
}

// Process implements Handler.
func (h *ExportHandler) Process(ctx context.Context, job Job) (json.RawMessage, error) {
	job.ReportProgress(ctx, 10, "collecting snippets")
	snippets, err := h.snippets.ListByUser(ctx, job.UserID, exportSnippetLimit)
	if err != nil {
		return nil, fmt.Errorf("load snippets: %w", err)
	}

	job.ReportProgress(ctx, 50, "building archive")
	entries := make([]zip.Entry, 0, len(snippets))
	for _, s := range snippets {
		name := fmt.Sprintf("%d/week-%02d/%s-%s.md", s.ISOYear, s.ISOWeek, s.Kind, s.ID)
		header := fmt.Sprintf("# %s (%s)\n\nWeek %d-W%02d, %s to %s\n\n",
			s.Kind, s.Source, s.ISOYear, s.ISOWeek,
			s.WeekStart.Format(jsoncfg.DateLayout), s.WeekEnd.Format(jsoncfg.DateLayout))
		entries = append(entries, zip.Entry{Filename: name, Data: []byte(header + s.Content + "\n")})
	}
	archive := zip.ArchiveEntries(entries)
	if archive == nil {
		return nil, fmt.Errorf("build archive")
	}

	job.ReportProgress(ctx, 80, "storing archive")
	key := fmt.Sprintf("exports/%s/%s.zip", job.UserID, job.OperationID)
	storedKey, err := h.store.Write(ctx, key, archive)
	if err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}

	return jsoncfg.MustMarshal(jsoncfg.ExportResult{
		StorageKey: storedKey,
		Entries:    len(entries),
		SizeBytes:  len(archive),
	}), nil
}

var _ Handler = (*ExportHandler)(nil)
