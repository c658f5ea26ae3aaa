package service

import (
	"go.uber.org/zap"

	"github.com/Nakkasenp65/register-item-delivery/config"
	"github.com/Nakkasenp65/register-item-delivery/internal/repository"
	"github.com/Nakkasenp65/register-item-delivery/pkg/events"
	"github.com/Nakkasenp65/register-item-delivery/pkg/line"
	"github.com/Nakkasenp65/register-item-delivery/pkg/upload"
)

// Service aggregate entry point for all services
type Service struct {
	Location LocationService
	Delivery DeliveryService
	Message  MessageService
	Export   ExportService
}

// NewService wires the services; pusher may be nil when push is not configured
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	uploader upload.Uploader,
	publisher events.Publisher,
	pusher line.Pusher,
	logger *zap.Logger,
) *Service {
	location := NewLocationService(repo, logger)
	return &Service{
		Location: location,
		Delivery: NewDeliveryService(&cfg.Delivery, repo, location, uploader, publisher, logger),
		Message:  NewMessageService(cfg, repo, pusher, logger),
		Export:   NewExportService(&cfg.Delivery, repo, logger),
	}
}
