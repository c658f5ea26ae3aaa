package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"go.uber.org/zap"

	"github.com/Nakkasenp65/register-item-delivery/config"
	"github.com/Nakkasenp65/register-item-delivery/internal/model"
	"github.com/Nakkasenp65/register-item-delivery/internal/repository"
	pkgerrors "github.com/Nakkasenp65/register-item-delivery/pkg/errors"
	"github.com/Nakkasenp65/register-item-delivery/pkg/line"
)

// ── Message module errors ──

var (
	ErrMessagingDisabled = errors.New("server-side messaging is not configured")
	ErrNoRecipient       = errors.New("delivery has no LINE recipient")
	ErrRecipientMismatch = errors.New("caller does not own this delivery")
)

const summaryAltText = "ข้อมูลการจัดส่ง"

// MessageService chat summary of a delivery record
type MessageService interface {
	// BuildSummary the Flex message the webview sends with liff.sendMessages
	BuildSummary(ctx context.Context, id string) (*linebot.FlexMessage, error)
	// PushSummary sends the summary to the record's LINE user. caller is the
	// verified LINE user ID and must own the record.
	PushSummary(ctx context.Context, id, caller string) error
}

type messageService struct {
	repo       *repository.Repository
	pusher     line.Pusher
	confirmURL string
	storeLabel string
	loc        *time.Location
	logger     *zap.Logger
}

// NewMessageService creates a MessageService; pusher may be nil
func NewMessageService(cfg *config.Config, repo *repository.Repository, pusher line.Pusher, logger *zap.Logger) MessageService {
	loc, err := time.LoadLocation(cfg.Delivery.Timezone)
	if err != nil {
		logger.Warn("unknown delivery timezone, using UTC+7",
			zap.String("timezone", cfg.Delivery.Timezone), zap.Error(err))
		loc = time.FixedZone("ICT", 7*60*60)
	}
	return &messageService{
		repo:       repo,
		pusher:     pusher,
		confirmURL: cfg.LIFF.ConfirmURL,
		storeLabel: cfg.Delivery.StorePickupLabel,
		loc:        loc,
		logger:     logger,
	}
}

// ────────────────────── Build ──────────────────────

func (s *messageService) BuildSummary(ctx context.Context, id string) (*linebot.FlexMessage, error) {
	d, err := loadDelivery(ctx, s.repo, s.logger, id)
	if err != nil {
		return nil, err
	}
	return s.summary(d), nil
}

func (s *messageService) summary(d *model.Delivery) *linebot.FlexMessage {
	tracking := d.TrackingID
	if tracking == "" {
		tracking = "N/A"
	}

	rows := []linebot.FlexComponent{
		infoRow("รหัส:", tracking, true),
		infoRow("ชื่อ:", d.CustomerName, false),
		infoRow("เบอร์:", d.Phone, false),
	}
	if d.LocationType == model.LocationTypeHome {
		rows = append(rows, infoRow("ที่อยู่:", formatAddress(d), false))
	} else {
		rows = append(rows, infoRow("รับที่:", s.storeLabel, false))
	}
	rows = append(rows, infoRow("วันที่:", thaiDate(d.CreatedAt, s.loc), false))

	bubble := &linebot.BubbleContainer{
		Type: linebot.FlexContainerTypeBubble,
		Body: &linebot.BoxComponent{
			Type:   linebot.FlexComponentTypeBox,
			Layout: linebot.FlexBoxLayoutTypeVertical,
			Contents: []linebot.FlexComponent{
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "📦 " + summaryAltText,
					Weight: linebot.FlexTextWeightTypeBold,
					Size:   linebot.FlexTextSizeTypeLg,
					Color:  "#1e40af",
				},
				&linebot.BoxComponent{
					Type:     linebot.FlexComponentTypeBox,
					Layout:   linebot.FlexBoxLayoutTypeVertical,
					Margin:   linebot.FlexComponentMarginTypeMd,
					Spacing:  linebot.FlexComponentSpacingTypeSm,
					Contents: rows,
				},
			},
		},
	}

	if s.confirmURL != "" {
		bubble.Footer = &linebot.BoxComponent{
			Type:    linebot.FlexComponentTypeBox,
			Layout:  linebot.FlexBoxLayoutTypeVertical,
			Spacing: linebot.FlexComponentSpacingTypeSm,
			Contents: []linebot.FlexComponent{
				&linebot.ButtonComponent{
					Type:   linebot.FlexComponentTypeButton,
					Style:  linebot.FlexButtonStyleTypePrimary,
					Height: linebot.FlexButtonHeightTypeSm,
					Action: linebot.NewURIAction("ดูข้อมูลการจัดส่ง", s.confirmURL),
				},
			},
		}
	}

	return linebot.NewFlexMessage(summaryAltText, bubble)
}

// ────────────────────── Push ──────────────────────

func (s *messageService) PushSummary(ctx context.Context, id, caller string) error {
	if s.pusher == nil {
		return ErrMessagingDisabled
	}

	d, err := loadDelivery(ctx, s.repo, s.logger, id)
	if err != nil {
		return err
	}
	if d.LineUserID == "" {
		return ErrNoRecipient
	}
	if caller != d.LineUserID {
		s.logger.Warn("push summary by non-owner", zap.String("id", id), zap.String("caller", caller))
		return ErrRecipientMismatch
	}

	if err := s.pusher.PushFlex(ctx, d.LineUserID, s.summary(d)); err != nil {
		s.logger.Error("push summary failed", zap.String("id", id), zap.Error(err))
		return pkgerrors.Upstream("push summary", err)
	}
	return nil
}

// ── helpers ──

func infoRow(label, value string, highlight bool) linebot.FlexComponent {
	flexLabel, flexValue := 1, 5
	v := &linebot.TextComponent{
		Type:  linebot.FlexComponentTypeText,
		Text:  value,
		Wrap:  true,
		Color: "#666666",
		Size:  linebot.FlexTextSizeTypeSm,
		Flex:  &flexValue,
	}
	if highlight {
		v.Color = "#1e40af"
		v.Weight = linebot.FlexTextWeightTypeBold
	}
	// LINE rejects empty text components
	if v.Text == "" {
		v.Text = "-"
	}
	return &linebot.BoxComponent{
		Type:   linebot.FlexComponentTypeBox,
		Layout: linebot.FlexBoxLayoutTypeBaseline,
		Contents: []linebot.FlexComponent{
			&linebot.TextComponent{
				Type:  linebot.FlexComponentTypeText,
				Text:  label,
				Color: "#aaaaaa",
				Size:  linebot.FlexTextSizeTypeSm,
				Flex:  &flexLabel,
			},
			v,
		},
	}
}

func formatAddress(d *model.Delivery) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{d.AddressDetails, d.SubDistrict, d.District, d.Province} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	addr := strings.Join(parts, ", ")
	if d.PostalCode != "" {
		addr = strings.TrimSpace(addr + " " + d.PostalCode)
	}
	return addr
}

// thaiDate d/m/yyyy in the Buddhist era, as th-TH renders dates
func thaiDate(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year()+543)
}
