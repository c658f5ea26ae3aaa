package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Nakkasenp65/register-item-delivery/config"
	"github.com/Nakkasenp65/register-item-delivery/internal/dto"
	"github.com/Nakkasenp65/register-item-delivery/internal/model"
	"github.com/Nakkasenp65/register-item-delivery/internal/repository"
	pkgerrors "github.com/Nakkasenp65/register-item-delivery/pkg/errors"
)

// ── Export module errors ──

var (
	ErrExportGenerateFail = errors.New("failed to generate Excel file")
)

const (
	exportSheet    = "Deliveries"
	exportMaxRows  = 10000
	exportDateForm = "2006-01-02"
)

// ExportService staff export
//
// The workbook is returned as a buffer; the handler sets the download
// headers and writes it to the response.
type ExportService interface {
	// ExportDeliveries exports the filtered records to .xlsx
	ExportDeliveries(ctx context.Context, req *dto.ExportDeliveriesRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService creates an ExportService
func NewExportService(cfg *config.DeliveryConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.FixedZone("ICT", 7*60*60)
	}
	return &exportService{repo: repo, loc: loc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportDeliveries
// ═══════════════════════════════════════════════════════════
//
// One sheet, one row per record, newest first. from/to are calendar days
// in the delivery timezone; to is inclusive.

func (s *exportService) ExportDeliveries(ctx context.Context, req *dto.ExportDeliveriesRequest) (*bytes.Buffer, string, error) {
	filter := model.DeliveryFilter{Status: req.Status, Limit: exportMaxRows}

	if req.From != "" {
		from, err := time.ParseInLocation(exportDateForm, req.From, s.loc)
		if err != nil {
			return nil, "", pkgerrors.Invalid("from", "must be YYYY-MM-DD")
		}
		filter.From = from
	}
	if req.To != "" {
		to, err := time.ParseInLocation(exportDateForm, req.To, s.loc)
		if err != nil {
			return nil, "", pkgerrors.Invalid("to", "must be YYYY-MM-DD")
		}
		filter.To = to.AddDate(0, 0, 1)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, "", pkgerrors.Invalid("to", "must not be before from")
	}

	deliveries, err := s.repo.Delivery.List(ctx, filter)
	if err != nil {
		s.logger.Error("list deliveries for export failed", zap.Error(err))
		return nil, "", pkgerrors.Upstream("list deliveries", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(exportSheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Tracking ID", "Created", "Status", "Customer", "Phone", "Type",
		"Address", "Sub-district", "District", "Province", "Postal code",
		"Slip URL", "Slip QR", "LINE user",
	}
	widths := []float64{16, 18, 11, 24, 14, 8, 36, 18, 18, 18, 11, 40, 8, 36}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1E40AF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range headers {
		col := colName(i)
		f.SetColWidth(exportSheet, col, col, widths[i])
		f.SetCellValue(exportSheet, cell(col, 1), h)
	}
	f.SetCellStyle(exportSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i := range deliveries {
		d := &deliveries[i]
		row := i + 2

		slipURL, slipQR := "", ""
		if d.SlipImageURL != nil {
			slipURL = *d.SlipImageURL
		}
		if d.SlipQRDetected != nil {
			slipQR = "no"
			if *d.SlipQRDetected {
				slipQR = "yes"
			}
		}

		values := []interface{}{
			d.TrackingID,
			d.CreatedAt.In(s.loc).Format("2006-01-02 15:04"),
			d.Status,
			d.CustomerName,
			d.Phone,
			d.LocationType,
			d.AddressDetails,
			d.SubDistrict,
			d.District,
			d.Province,
			d.PostalCode,
			slipURL,
			slipQR,
			d.LineUserID,
		}
		for c, v := range values {
			f.SetCellValue(exportSheet, cell(colName(c), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write Excel failed", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("deliveries_%s.xlsx", time.Now().In(s.loc).Format("20060102_1504"))
	return buf, filename, nil
}

// ── helpers ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
