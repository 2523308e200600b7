package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/haimph/transfer-approval-api/internal/dto"
	"github.com/haimph/transfer-approval-api/internal/models"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
	"github.com/haimph/transfer-approval-api/pkg/export"
	"github.com/haimph/transfer-approval-api/pkg/storage"
)

// ExportFormat names the supported listing export encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportLister interface {
	List(ctx context.Context, filter models.TransferFilter) ([]models.TransferRow, int, error)
}

// ExportServiceConfig tunes listing exports.
type ExportServiceConfig struct {
	Enabled bool
	MaxRows int
	// ArchiveRetention bounds how long archived copies are kept; zero keeps
	// them forever.
	ArchiveRetention time.Duration
}

// ExportService renders the filtered transfer listing as a file download.
// When an archive is configured, every rendered file is also kept on disk.
type ExportService struct {
	repo    exportLister
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	archive *storage.LocalStorage
	logger  *zap.Logger
	cfg     ExportServiceConfig
}

// NewExportService constructs the service. archive may be nil to disable
// on-disk copies.
func NewExportService(repo exportLister, archive *storage.LocalStorage, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:    repo,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		archive: archive,
		logger:  logger,
		cfg:     cfg,
	}
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var exportHeaders = []string{
	"ID", "Batch", "MSNV", "From", "To", "Effective", "Permanent", "Status",
	"Requested By", "Approved By", "Confirmed By", "Reason", "Created",
}

// Export renders every row matching the filter, ignoring pagination, capped
// at the configured maximum.
func (s *ExportService) Export(ctx context.Context, query dto.TransferQuery, format ExportFormat) (*ExportFile, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unknown export format %q", format))
	}

	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}
	filter.Page = 1
	filter.PageSize = s.cfg.MaxRows

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rows for export")
	}
	if total > s.cfg.MaxRows {
		s.logger.Warn("export truncated", zap.Int("total", total), zap.Int("max", s.cfg.MaxRows))
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, exportRow(row))
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	var file *ExportFile
	switch format {
	case ExportFormatCSV:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		file = &ExportFile{
			Filename:    fmt.Sprintf("transfer-requests-%s.csv", stamp),
			ContentType: "text/csv",
			Body:        body,
		}
	default:
		body, err := s.pdf.Render(dataset, "Transfer Requests")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		file = &ExportFile{
			Filename:    fmt.Sprintf("transfer-requests-%s.pdf", stamp),
			ContentType: "application/pdf",
			Body:        body,
		}
	}

	if s.archive != nil {
		if s.cfg.ArchiveRetention > 0 {
			if err := s.archive.Prune(s.cfg.ArchiveRetention); err != nil {
				s.logger.Warn("failed to prune expired export copies", zap.Error(err))
			}
		}
		if _, err := s.archive.Save(file.Filename, file.Body); err != nil {
			s.logger.Warn("failed to archive export copy", zap.String("file", file.Filename), zap.Error(err))
		}
	}
	return file, nil
}

func exportRow(row models.TransferRow) map[string]string {
	permanent := "no"
	if row.IsPermanent {
		permanent = "yes"
	}
	out := map[string]string{
		"ID":           fmt.Sprintf("%d", row.ID),
		"MSNV":         row.MSNV,
		"From":         row.FromCode,
		"To":           row.ToCode,
		"Effective":    row.EffectiveDate.Format("2006-01-02"),
		"Permanent":    permanent,
		"Status":       string(row.Status),
		"Requested By": row.RequestedByName,
		"Created":      row.CreatedAt.Format("2006-01-02 15:04"),
	}
	if row.BatchNumber != nil {
		out["Batch"] = *row.BatchNumber
	}
	if row.ApprovedByName != nil {
		out["Approved By"] = *row.ApprovedByName
	}
	if row.ConfirmedByName != nil {
		out["Confirmed By"] = *row.ConfirmedByName
	}
	if row.RejectionReason != nil {
		out["Reason"] = *row.RejectionReason
	}
	return out
}
