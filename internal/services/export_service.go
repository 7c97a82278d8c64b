package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

const (
	leadsSheet     = "Leads"
	exportPageSize = 500
)

var leadExportHeaders = []string{
	"Lead ID", "Created At", "Name", "Email", "Phone", "Company", "Role",
	"City", "Source", "Modules", "Yearly Savings (L)", "Annual Savings", "Payback (years)",
}

// ExportService renders back-office lead reports
type ExportService struct {
	leads   repository.LeadRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewExportService creates a new export service
func NewExportService(leads repository.LeadRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ExportService {
	return &ExportService{
		leads:   leads,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// LeadsXLSX writes every lead matching filter to w as a workbook. Limit and Offset on
// the filter are ignored; the export pages through the whole result. Returns the row count.
func (s *ExportService) LeadsXLSX(ctx context.Context, filter repository.LeadFilter, w io.Writer) (int, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leadsSheet); err != nil {
		return 0, fmt.Errorf("failed to prepare workbook: %w", err)
	}

	for i, h := range leadExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(leadsSheet, cell, h); err != nil {
			return 0, fmt.Errorf("failed to write header: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(leadsSheet, 1, 1, headerStyle); err != nil {
		return 0, fmt.Errorf("failed to style header: %w", err)
	}

	filter.Limit = exportPageSize
	filter.Offset = 0
	row := 2
	for {
		page, total, err := s.leads.List(ctx, filter)
		if err != nil {
			return 0, err
		}
		for _, lead := range page {
			if err := writeLeadRow(f, row, lead); err != nil {
				return 0, err
			}
			row++
		}
		filter.Offset += len(page)
		if len(page) == 0 || filter.Offset >= total {
			break
		}
	}

	_ = f.SetColWidth(leadsSheet, "A", "A", 38)
	_ = f.SetColWidth(leadsSheet, "B", "H", 22)
	_ = f.SetColWidth(leadsSheet, "I", "M", 16)
	_ = f.SetPanes(leadsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}

	count := row - 2
	s.logger.Info(ctx, "[EXPORT_LEADS] Lead export written", logging.Fields{
		"rows":        count,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return count, nil
}

func writeLeadRow(f *excelize.File, row int, lead *models.LeadSummary) error {
	values := []interface{}{
		lead.ID.String(),
		lead.CreatedAt.UTC().Format(time.RFC3339),
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.Role,
		lead.CityName,
		lead.Source,
		optional(lead.Modules),
		optional(lead.YearlyDifferenceLiters),
		optional(lead.AnnualSavingsCurrency),
		paybackCell(lead),
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(leadsSheet, cell, v); err != nil {
			return fmt.Errorf("failed to write lead %s: %w", lead.ID, err)
		}
	}
	return nil
}

// paybackCell spells out the no-payback case instead of printing the sentinel as years
func paybackCell(lead *models.LeadSummary) interface{} {
	if lead.PaysBack != nil && !*lead.PaysBack && lead.PaybackYears != nil {
		return fmt.Sprintf("does not pay back within %.0f years", *lead.PaybackYears)
	}
	return optional(lead.PaybackYears)
}

// optional leaves the cell blank for leads stored without a simulation
func optional[T int | float64](v *T) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
