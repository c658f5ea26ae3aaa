package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/Nakkasenp65/register-item-delivery/config"
	"github.com/Nakkasenp65/register-item-delivery/internal/addressform"
	"github.com/Nakkasenp65/register-item-delivery/internal/dto"
	"github.com/Nakkasenp65/register-item-delivery/internal/model"
	"github.com/Nakkasenp65/register-item-delivery/internal/repository"
	pkgerrors "github.com/Nakkasenp65/register-item-delivery/pkg/errors"
	"github.com/Nakkasenp65/register-item-delivery/pkg/events"
	"github.com/Nakkasenp65/register-item-delivery/pkg/slipcheck"
	"github.com/Nakkasenp65/register-item-delivery/pkg/trackingid"
	"github.com/Nakkasenp65/register-item-delivery/pkg/upload"
)

// ── Delivery module errors ──

var (
	ErrDeliveryNotFound        = errors.New("delivery not found")
	ErrSlipRejected            = errors.New("slip rejected")
	ErrInvalidStatusTransition = errors.New("status transition not allowed")
	ErrTrackingIDExhausted     = errors.New("could not allocate a unique tracking id")
)

const (
	// maxTrackingAttempts bounds regeneration after a unique-index collision
	maxTrackingAttempts = 3
	// publishTimeout caps how long a request waits on the event broker
	publishTimeout = 2 * time.Second
)

// TrackingIDGenerator produces public tracking codes
type TrackingIDGenerator interface {
	Generate() (string, error)
}

// DeliveryService delivery record business logic
type DeliveryService interface {
	Create(ctx context.Context, req *dto.CreateDeliveryRequest, slip *dto.SlipFile) (*dto.CreateDeliveryResponse, error)
	GetByID(ctx context.Context, id string) (*dto.DeliveryResponse, error)
	// Find returns records for the identifier or phone, newest first; empty when none
	Find(ctx context.Context, req *dto.FindDeliveryRequest) ([]dto.DeliveryResponse, error)
	// GetCurrent the most recent record for an identifier
	GetCurrent(ctx context.Context, lineUserID string) (*dto.DeliveryResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateDeliveryRequest) (*dto.DeliveryResponse, error)
	UpdateAddress(ctx context.Context, id string, req *dto.UpdateAddressRequest) (*dto.DeliveryResponse, error)
	UpdateStatus(ctx context.Context, id string, status string) (*dto.DeliveryResponse, error)
}

type deliveryService struct {
	cfg       *config.DeliveryConfig
	repo      *repository.Repository
	location  LocationService
	uploader  upload.Uploader
	publisher events.Publisher
	validator *Validator
	logger    *zap.Logger

	ids            TrackingIDGenerator
	hasQR          func([]byte) (bool, error)
	now            func() time.Time
	publishTimeout time.Duration
}

// NewDeliveryService creates a DeliveryService
func NewDeliveryService(
	cfg *config.DeliveryConfig,
	repo *repository.Repository,
	location LocationService,
	uploader upload.Uploader,
	publisher events.Publisher,
	logger *zap.Logger,
) DeliveryService {
	return &deliveryService{
		cfg:            cfg,
		repo:           repo,
		location:       location,
		uploader:       uploader,
		publisher:      publisher,
		validator:      NewValidator(),
		logger:         logger,
		ids:            trackingid.New(),
		hasQR:          slipcheck.HasQRCode,
		now:            time.Now,
		publishTimeout: publishTimeout,
	}
}

// ────────────────────── Create ──────────────────────

func (s *deliveryService) Create(ctx context.Context, req *dto.CreateDeliveryRequest, slip *dto.SlipFile) (*dto.CreateDeliveryResponse, error) {
	trimCreate(req)

	// store pickups carry no address and no payment evidence
	if req.LocationType == model.LocationTypeStore {
		req.AddressDetails, req.SubDistrict, req.District, req.Province, req.PostalCode = "", "", "", "", ""
		slip = nil
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	if req.LocationType == model.LocationTypeHome {
		if slip == nil && s.cfg.RequireSlipForHome {
			return nil, pkgerrors.Required("file")
		}
		if s.cfg.VerifyAddress {
			if err := s.location.VerifyAddress(ctx, AddressFields{
				SubDistrict: req.SubDistrict,
				District:    req.District,
				Province:    req.Province,
				PostalCode:  req.PostalCode,
			}); err != nil {
				return nil, err
			}
		}
	}

	trackingID, err := s.ids.Generate()
	if err != nil {
		s.logger.Error("generate tracking id failed", zap.Error(err))
		return nil, fmt.Errorf("generate tracking id: %w", err)
	}

	now := s.now().UTC()
	d := &model.Delivery{
		TrackingID:     trackingID,
		LineUserID:     req.LineUserID,
		CustomerName:   req.CustomerName,
		Phone:          req.Phone,
		LocationType:   req.LocationType,
		AddressDetails: req.AddressDetails,
		SubDistrict:    req.SubDistrict,
		District:       req.District,
		Province:       req.Province,
		PostalCode:     req.PostalCode,
		Status:         model.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if slip != nil {
		if err := s.attachSlip(ctx, d, slip); err != nil {
			return nil, err
		}
	}

	if err := s.insert(ctx, d); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeDeliveryCreated, d, nil)

	return &dto.CreateDeliveryResponse{
		ID:             d.ID.Hex(),
		SlipImageURL:   d.SlipImageURL,
		TrackingID:     d.TrackingID,
		CreatedAt:      d.CreatedAt,
		SlipQRDetected: d.SlipQRDetected,
	}, nil
}

// attachSlip checks the slip for a QR code and uploads it
func (s *deliveryService) attachSlip(ctx context.Context, d *model.Delivery, slip *dto.SlipFile) error {
	if len(slip.Data) == 0 {
		return pkgerrors.Required("file")
	}

	// a missing QR code is only a warning for staff
	detected, err := s.hasQR(slip.Data)
	switch {
	case err != nil:
		s.logger.Warn("slip is not a decodable image", zap.String("filename", slip.Filename), zap.Error(err))
	case !detected:
		d.SlipQRDetected = &detected
		s.logger.Warn("no QR code found on slip", zap.String("tracking_id", d.TrackingID))
	default:
		d.SlipQRDetected = &detected
	}

	res, err := s.uploader.Upload(ctx, upload.File{
		Data:        slip.Data,
		Filename:    slip.Filename,
		ContentType: slip.ContentType,
	}, d.LineUserID)
	if err != nil {
		var rejected *upload.RejectedError
		switch {
		case errors.As(err, &rejected):
			s.logger.Warn("slip rejected by upload service",
				zap.Int("status", rejected.Status), zap.String("message", rejected.Message))
			return fmt.Errorf("%w: %s", ErrSlipRejected, rejected.Message)
		case errors.Is(err, upload.ErrDisabled):
			return pkgerrors.Invalid("file", "slip upload is not available")
		default:
			s.logger.Error("slip upload failed", zap.String("tracking_id", d.TrackingID), zap.Error(err))
			return pkgerrors.Upstream("upload slip", err)
		}
	}

	d.SlipImageURL = &res.URL
	d.SlipFileID = res.FileID
	return nil
}

// insert writes d, regenerating the tracking ID on a unique-index collision
func (s *deliveryService) insert(ctx context.Context, d *model.Delivery) error {
	for attempt := 1; ; attempt++ {
		err := s.repo.Delivery.Create(ctx, d)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			s.logger.Error("insert delivery failed", zap.String("tracking_id", d.TrackingID), zap.Error(err))
			return pkgerrors.Upstream("insert delivery", err)
		}
		if attempt >= maxTrackingAttempts {
			s.logger.Error("tracking id collisions exhausted", zap.Int("attempts", attempt))
			return ErrTrackingIDExhausted
		}

		s.logger.Warn("tracking id collision, regenerating", zap.String("tracking_id", d.TrackingID))
		id, genErr := s.ids.Generate()
		if genErr != nil {
			s.logger.Error("generate tracking id failed", zap.Error(genErr))
			return fmt.Errorf("generate tracking id: %w", genErr)
		}
		d.TrackingID = id
	}
}

// ────────────────────── Read ──────────────────────

func (s *deliveryService) GetByID(ctx context.Context, id string) (*dto.DeliveryResponse, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDeliveryResponse(d), nil
}

func (s *deliveryService) Find(ctx context.Context, req *dto.FindDeliveryRequest) ([]dto.DeliveryResponse, error) {
	lineUserID := strings.TrimSpace(req.LineUserID)
	phone := strings.TrimSpace(req.Phone)
	if lineUserID == "" && phone == "" {
		return nil, pkgerrors.Invalid("line_user_id", "line_user_id or phone is required")
	}

	list, err := s.repo.Delivery.FindByIdentifierOrPhone(ctx, lineUserID, phone)
	if err != nil {
		s.logger.Error("find deliveries failed", zap.String("line_user_id", lineUserID), zap.Error(err))
		return nil, pkgerrors.Upstream("find deliveries", err)
	}

	result := make([]dto.DeliveryResponse, 0, len(list))
	for i := range list {
		result = append(result, *toDeliveryResponse(&list[i]))
	}
	return result, nil
}

func (s *deliveryService) GetCurrent(ctx context.Context, lineUserID string) (*dto.DeliveryResponse, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID == "" {
		return nil, pkgerrors.Required("line_user_id")
	}

	list, err := s.repo.Delivery.FindByIdentifierOrPhone(ctx, lineUserID, "")
	if err != nil {
		s.logger.Error("find current delivery failed", zap.String("line_user_id", lineUserID), zap.Error(err))
		return nil, pkgerrors.Upstream("find current delivery", err)
	}
	if len(list) == 0 {
		return nil, ErrDeliveryNotFound
	}
	return toDeliveryResponse(&list[0]), nil
}

// ────────────────────── Update ──────────────────────

func (s *deliveryService) Update(ctx context.Context, id string, req *dto.UpdateDeliveryRequest) (*dto.DeliveryResponse, error) {
	trimUpdate(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	setIf := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}
	setIf("customerName", req.CustomerName)
	setIf("phone", req.Phone)

	addressTouched := false
	if existing.LocationType == model.LocationTypeHome {
		before := len(fields)
		setIf("addressDetails", req.AddressDetails)
		setIf("subDistrict", req.SubDistrict)
		setIf("district", req.District)
		setIf("province", req.Province)
		setIf("postalCode", req.PostalCode)
		addressTouched = len(fields) > before
	}

	if len(fields) == 0 {
		return nil, pkgerrors.Invalid("body", "no updatable fields supplied")
	}

	if addressTouched && s.cfg.VerifyAddress {
		merged := AddressFields{
			SubDistrict: pick(req.SubDistrict, existing.SubDistrict),
			District:    pick(req.District, existing.District),
			Province:    pick(req.Province, existing.Province),
			PostalCode:  pick(req.PostalCode, existing.PostalCode),
		}
		if err := s.location.VerifyAddress(ctx, merged); err != nil {
			return nil, err
		}
	}

	updated, err := s.updateFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeDeliveryUpdated, updated, fieldNames(fields))
	return toDeliveryResponse(updated), nil
}

// UpdateAddress replaces the address with a selection made through the
// address form, so only tuples from the reference table can be stored.
func (s *deliveryService) UpdateAddress(ctx context.Context, id string, req *dto.UpdateAddressRequest) (*dto.DeliveryResponse, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.LocationType != model.LocationTypeHome {
		return nil, pkgerrors.Invalid("locationType", "address can only be edited on a home delivery")
	}

	form := addressform.New(s.location.FormSource())
	if err := s.fillForm(ctx, form, req); err != nil {
		return nil, err
	}

	addr, err := form.Address()
	if err != nil {
		return nil, pkgerrors.Invalid("sub_district_id", "no postal code for the selected sub-district")
	}

	fields := map[string]interface{}{
		"subDistrict": addr.SubDistrict.Name(),
		"district":    addr.District.Name(),
		"province":    addr.Province.Name(),
		"postalCode":  addr.PostalCode,
	}
	if details := strings.TrimSpace(req.AddressDetails); details != "" {
		fields["addressDetails"] = details
	}

	updated, err := s.updateFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeDeliveryUpdated, updated, fieldNames(fields))
	return toDeliveryResponse(updated), nil
}

func (s *deliveryService) fillForm(ctx context.Context, form *addressform.Form, req *dto.UpdateAddressRequest) error {
	if code := strings.TrimSpace(req.PostalCode); code != "" {
		return formError(form.SelectPostalCodeFor(ctx, code, req.SubDistrictID), "postal_code")
	}

	switch {
	case req.ProvinceID == 0:
		return pkgerrors.Required("province_id")
	case req.DistrictID == 0:
		return pkgerrors.Required("district_id")
	case req.SubDistrictID == 0:
		return pkgerrors.Required("sub_district_id")
	}

	if err := form.SelectProvince(ctx, req.ProvinceID); err != nil {
		return formError(err, "province_id")
	}
	if err := form.SelectDistrict(ctx, req.DistrictID); err != nil {
		return formError(err, "district_id")
	}
	if err := form.SelectSubDistrict(ctx, req.SubDistrictID); err != nil {
		return formError(err, "sub_district_id")
	}
	return nil
}

// formError turns a selection miss into a validation error for field
func formError(err error, field string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, addressform.ErrOptionNotFound) || errors.Is(err, addressform.ErrPostalNotListed) {
		return pkgerrors.Invalid(field, "not found in reference data")
	}
	return err
}

// ────────────────────── Status ──────────────────────

func (s *deliveryService) UpdateStatus(ctx context.Context, id string, status string) (*dto.DeliveryResponse, error) {
	if !model.ValidStatus(status) {
		return nil, pkgerrors.Invalid("status", "unknown status")
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(existing.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, existing.Status, status)
	}

	updated, err := s.updateFields(ctx, id, map[string]interface{}{"status": status})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeDeliveryStatusChanged, updated, map[string]string{
		"from": existing.Status,
		"to":   status,
	})
	return toDeliveryResponse(updated), nil
}

// ── internal helpers ──

// load maps store errors to module errors
func (s *deliveryService) load(ctx context.Context, id string) (*model.Delivery, error) {
	return loadDelivery(ctx, s.repo, s.logger, id)
}

func (s *deliveryService) updateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Delivery, error) {
	d, err := s.repo.Delivery.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, mapDeliveryStoreError(s.logger, "update delivery", id, err)
	}
	return d, nil
}

func loadDelivery(ctx context.Context, repo *repository.Repository, logger *zap.Logger, id string) (*model.Delivery, error) {
	d, err := repo.Delivery.GetByID(ctx, id)
	if err != nil {
		return nil, mapDeliveryStoreError(logger, "get delivery", id, err)
	}
	return d, nil
}

func mapDeliveryStoreError(logger *zap.Logger, op, id string, err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return pkgerrors.Invalid("id", "malformed record ID")
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrDeliveryNotFound
	}
	logger.Error(op+" failed", zap.String("id", id), zap.Error(err))
	return pkgerrors.Upstream(op, err)
}

// publish emits an event; the record is already stored so failures are logged only.
// The write outlives a client disconnect but not publishTimeout.
func (s *deliveryService) publish(ctx context.Context, typ string, d *model.Delivery, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	err := s.publisher.Publish(ctx, events.Event{
		Type:       typ,
		DeliveryID: d.ID.Hex(),
		TrackingID: d.TrackingID,
		OccurredAt: s.now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		s.logger.Warn("publish delivery event failed",
			zap.String("type", typ), zap.String("id", d.ID.Hex()), zap.Error(err))
	}
}

func trimCreate(req *dto.CreateDeliveryRequest) {
	for _, p := range []*string{
		&req.LineUserID, &req.CustomerName, &req.Phone, &req.LocationType,
		&req.AddressDetails, &req.SubDistrict, &req.District, &req.Province, &req.PostalCode,
	} {
		*p = strings.TrimSpace(*p)
	}
}

func trimUpdate(req *dto.UpdateDeliveryRequest) {
	for _, p := range []**string{
		&req.CustomerName, &req.Phone, &req.AddressDetails,
		&req.SubDistrict, &req.District, &req.Province, &req.PostalCode,
	} {
		if *p != nil {
			v := strings.TrimSpace(**p)
			*p = &v
		}
	}
}

func pick(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}

func fieldNames(fields map[string]interface{}) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func toDeliveryResponse(d *model.Delivery) *dto.DeliveryResponse {
	return &dto.DeliveryResponse{
		ID:             d.ID.Hex(),
		TrackingID:     d.TrackingID,
		LineUserID:     d.LineUserID,
		CustomerName:   d.CustomerName,
		Phone:          d.Phone,
		LocationType:   d.LocationType,
		AddressDetails: d.AddressDetails,
		SubDistrict:    d.SubDistrict,
		District:       d.District,
		Province:       d.Province,
		PostalCode:     d.PostalCode,
		SlipImageURL:   d.SlipImageURL,
		SlipQRDetected: d.SlipQRDetected,
		Status:         d.Status,
		CreatedAt:      d.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:      d.UpdatedAt.UTC().Format(timeLayout),
	}
}
