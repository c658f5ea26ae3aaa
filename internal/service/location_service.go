package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Nakkasenp65/register-item-delivery/internal/addressform"
	"github.com/Nakkasenp65/register-item-delivery/internal/dto"
	"github.com/Nakkasenp65/register-item-delivery/internal/model"
	"github.com/Nakkasenp65/register-item-delivery/internal/repository"
	pkgerrors "github.com/Nakkasenp65/register-item-delivery/pkg/errors"
)

// ── Location module errors ──

var (
	ErrAddressMismatch = errors.New("address does not match reference data")
)

const (
	defaultOptionLimit = 100
	maxOptionLimit     = 500
)

// AddressFields the free-text address tuple stored on a record
type AddressFields struct {
	SubDistrict string
	District    string
	Province    string
	PostalCode  string
}

// LocationService address-hierarchy resolver
type LocationService interface {
	ListProvinces(ctx context.Context, req *dto.LocationSearchRequest) ([]dto.LocationOptionResponse, error)
	ListDistricts(ctx context.Context, provinceID int, req *dto.LocationSearchRequest) ([]dto.LocationOptionResponse, error)
	ListSubDistricts(ctx context.Context, provinceID, districtID int, req *dto.LocationSearchRequest) ([]dto.LocationOptionResponse, error)
	ListPostalCodesByPrefix(ctx context.Context, req *dto.PostalCodeListRequest) ([]dto.PostalCodeResponse, error)
	ResolvePostalCode(ctx context.Context, req *dto.ResolvePostalCodeRequest) (*dto.ResolvePostalCodeResponse, error)
	// VerifyAddress checks that the tuple exists in the reference table
	VerifyAddress(ctx context.Context, a AddressFields) error
	// FormSource exposes the per-level lookups to the address form
	FormSource() addressform.Source
}

type locationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLocationService creates a LocationService
func NewLocationService(repo *repository.Repository, logger *zap.Logger) LocationService {
	return &locationService{repo: repo, logger: logger}
}

// ────────────────────── Provinces ──────────────────────

func (s *locationService) ListProvinces(ctx context.Context, req *dto.LocationSearchRequest) ([]dto.LocationOptionResponse, error) {
	opts, err := s.provinceOptions(ctx, addressform.Filter{Search: req.Search, Limit: req.Limit})
	if err != nil {
		return nil, err
	}
	return toOptionResponses(opts, req.Lang), nil
}

func (s *locationService) provinceOptions(ctx context.Context, f addressform.Filter) ([]addressform.Option, error) {
	provinces, err := s.repo.Location.ListProvinces(ctx)
	if err != nil {
		s.logger.Error("list provinces failed", zap.Error(err))
		return nil, pkgerrors.Upstream("list provinces", err)
	}

	limit := clampLimit(f.Limit)
	opts := make([]addressform.Option, 0, min(len(provinces), limit))
	for _, p := range provinces {
		if len(opts) >= limit {
			break
		}
		if !matchName(p.NameTH, p.NameEN, f.Search) {
			continue
		}
		opts = append(opts, addressform.Option{ID: p.ID, NameTH: model.Str(p.NameTH), NameEN: model.Str(p.NameEN)})
	}
	return opts, nil
}

// ────────────────────── Districts ──────────────────────

func (s *locationService) ListDistricts(ctx context.Context, provinceID int, req *dto.LocationSearchRequest) ([]dto.LocationOptionResponse, error) {
	if provinceID <= 0 {
		return nil, pkgerrors.Invalid("province_id", "must be a positive integer")
	}
	opts, err := s.districtOptions(ctx, addressform.Filter{ProvinceID: provinceID, Search: req.Search, Limit: req.Limit})
	if err != nil {
		return nil, err
	}
	return toOptionResponses(opts, req.Lang), nil
}

func (s *locationService) districtOptions(ctx context.Context, f addressform.Filter) ([]addressform.Option, error) {
	rows, err := s.repo.Location.ListRows(ctx, model.ZipCodeQuery{ProvinceID: f.ProvinceID})
	if err != nil {
		s.logger.Error("list districts failed", zap.Int("province_id", f.ProvinceID), zap.Error(err))
		return nil, pkgerrors.Upstream("list districts", err)
	}

	// one row per postal code, so the same district repeats
	limit := clampLimit(f.Limit)
	seen := make(map[int]bool)
	opts := make([]addressform.Option, 0)
	for _, r := range rows {
		if len(opts) >= limit {
			break
		}
		if seen[r.DistrictID] || !matchName(r.DistrictTH, r.DistrictEN, f.Search) {
			continue
		}
		seen[r.DistrictID] = true
		opts = append(opts, addressform.Option{ID: r.DistrictID, NameTH: model.Str(r.DistrictTH), NameEN: model.Str(r.DistrictEN)})
	}
	return opts, nil
}

// ────────────────────── Sub-districts ──────────────────────

func (s *locationService) ListSubDistricts(ctx context.Context, provinceID, districtID int, req *dto.LocationSearchRequest) ([]dto.LocationOptionResponse, error) {
	if provinceID <= 0 {
		return nil, pkgerrors.Invalid("province_id", "must be a positive integer")
	}
	if districtID <= 0 {
		return nil, pkgerrors.Invalid("district_id", "must be a positive integer")
	}
	opts, err := s.subDistrictOptions(ctx, addressform.Filter{
		ProvinceID: provinceID,
		DistrictID: districtID,
		Search:     req.Search,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return toOptionResponses(opts, req.Lang), nil
}

func (s *locationService) subDistrictOptions(ctx context.Context, f addressform.Filter) ([]addressform.Option, error) {
	rows, err := s.repo.Location.ListRows(ctx, model.ZipCodeQuery{ProvinceID: f.ProvinceID, DistrictID: f.DistrictID})
	if err != nil {
		s.logger.Error("list sub-districts failed",
			zap.Int("province_id", f.ProvinceID), zap.Int("district_id", f.DistrictID), zap.Error(err))
		return nil, pkgerrors.Upstream("list sub-districts", err)
	}

	limit := clampLimit(f.Limit)
	seen := make(map[int]bool)
	opts := make([]addressform.Option, 0)
	for _, r := range rows {
		if len(opts) >= limit {
			break
		}
		if seen[r.SubDistrictID] || !matchName(r.SubDistrictTH, r.SubDistrictEN, f.Search) {
			continue
		}
		seen[r.SubDistrictID] = true
		opts = append(opts, addressform.Option{ID: r.SubDistrictID, NameTH: model.Str(r.SubDistrictTH), NameEN: model.Str(r.SubDistrictEN)})
	}
	return opts, nil
}

// ────────────────────── Postal codes ──────────────────────

func (s *locationService) ListPostalCodesByPrefix(ctx context.Context, req *dto.PostalCodeListRequest) ([]dto.PostalCodeResponse, error) {
	matches, err := s.postalMatches(ctx, req.Prefix, req.Limit)
	if err != nil {
		return nil, err
	}

	result := make([]dto.PostalCodeResponse, 0, len(matches))
	for _, m := range matches {
		result = append(result, dto.PostalCodeResponse{
			PostalCode:  m.PostalCode,
			Province:    toOptionResponse(m.Province, req.Lang),
			District:    toOptionResponse(m.District, req.Lang),
			SubDistrict: toOptionResponse(m.SubDistrict, req.Lang),
		})
	}
	return result, nil
}

// postalMatches every row whose code starts with prefix; no de-duplication
func (s *locationService) postalMatches(ctx context.Context, prefix string, limit int) ([]addressform.PostalMatch, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []addressform.PostalMatch{}, nil
	}
	if !isDigits(prefix) {
		return nil, pkgerrors.Invalid("prefix", "must contain digits only")
	}

	rows, err := s.repo.Location.ListRows(ctx, model.ZipCodeQuery{PostalPrefix: prefix, Limit: clampLimit(limit)})
	if err != nil {
		s.logger.Error("list postal codes failed", zap.String("prefix", prefix), zap.Error(err))
		return nil, pkgerrors.Upstream("list postal codes", err)
	}

	matches := make([]addressform.PostalMatch, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, rowToMatch(r))
	}
	return matches, nil
}

func (s *locationService) ResolvePostalCode(ctx context.Context, req *dto.ResolvePostalCodeRequest) (*dto.ResolvePostalCodeResponse, error) {
	code, found, err := s.resolve(ctx, req.ProvinceID, req.DistrictID, req.SubDistrictID)
	if err != nil {
		return nil, err
	}
	return &dto.ResolvePostalCodeResponse{Found: found, PostalCode: code}, nil
}

func (s *locationService) resolve(ctx context.Context, provinceID, districtID, subDistrictID int) (string, bool, error) {
	rows, err := s.repo.Location.ListRows(ctx, model.ZipCodeQuery{
		ProvinceID:    provinceID,
		DistrictID:    districtID,
		SubDistrictID: subDistrictID,
		Limit:         1,
	})
	if err != nil {
		s.logger.Error("resolve postal code failed",
			zap.Int("province_id", provinceID),
			zap.Int("district_id", districtID),
			zap.Int("sub_district_id", subDistrictID),
			zap.Error(err))
		return "", false, pkgerrors.Upstream("resolve postal code", err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].ZipCode, true, nil
}

// ────────────────────── Verify ──────────────────────

func (s *locationService) VerifyAddress(ctx context.Context, a AddressFields) error {
	code := strings.TrimSpace(a.PostalCode)
	if !isDigits(code) {
		return pkgerrors.Invalid("postalCode", "must contain digits only")
	}

	rows, err := s.repo.Location.ListRows(ctx, model.ZipCodeQuery{PostalCode: code})
	if err != nil {
		s.logger.Error("verify address failed", zap.String("postal_code", code), zap.Error(err))
		return pkgerrors.Upstream("verify address", err)
	}

	for _, r := range rows {
		if sameName(r.SubDistrictTH, r.SubDistrictEN, a.SubDistrict) &&
			sameName(r.DistrictTH, r.DistrictEN, a.District) &&
			sameName(r.ProvinceTH, r.ProvinceEN, a.Province) {
			return nil
		}
	}
	return &pkgerrors.ValidationError{
		Field:  "postalCode",
		Reason: ErrAddressMismatch.Error(),
	}
}

// ── address form wiring ──

func (s *locationService) FormSource() addressform.Source {
	return addressform.Source{
		Provinces:    addressform.FetcherFunc(s.provinceOptions),
		Districts:    addressform.FetcherFunc(s.districtOptions),
		SubDistricts: addressform.FetcherFunc(s.subDistrictOptions),
		PostalCodes:  postalCodeFetcher{s},
		Resolver:     postalCodeResolver{s},
	}
}

type postalCodeFetcher struct{ s *locationService }

func (p postalCodeFetcher) FetchPostalCodes(ctx context.Context, prefix string) ([]addressform.PostalMatch, error) {
	return p.s.postalMatches(ctx, prefix, maxOptionLimit)
}

type postalCodeResolver struct{ s *locationService }

func (p postalCodeResolver) ResolvePostalCode(ctx context.Context, provinceID, districtID, subDistrictID int) (string, bool, error) {
	return p.s.resolve(ctx, provinceID, districtID, subDistrictID)
}

// ── helpers ──

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultOptionLimit
	}
	if limit > maxOptionLimit {
		return maxOptionLimit
	}
	return limit
}

// matchName case-insensitive substring match against either language
func matchName(th, en *string, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(model.Str(th)), search) ||
		strings.Contains(strings.ToLower(model.Str(en)), search)
}

// sameName case-insensitive equality against either language
func sameName(th, en *string, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(model.Str(th)), name) ||
		strings.EqualFold(strings.TrimSpace(model.Str(en)), name)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func rowToMatch(r model.ZipCodeRow) addressform.PostalMatch {
	return addressform.PostalMatch{
		PostalCode:  r.ZipCode,
		Province:    addressform.Option{ID: r.ProvinceID, NameTH: model.Str(r.ProvinceTH), NameEN: model.Str(r.ProvinceEN)},
		District:    addressform.Option{ID: r.DistrictID, NameTH: model.Str(r.DistrictTH), NameEN: model.Str(r.DistrictEN)},
		SubDistrict: addressform.Option{ID: r.SubDistrictID, NameTH: model.Str(r.SubDistrictTH), NameEN: model.Str(r.SubDistrictEN)},
	}
}

func displayName(o addressform.Option, lang string) string {
	if lang == "en" && o.NameEN != "" {
		return o.NameEN
	}
	return o.Name()
}

func toOptionResponse(o addressform.Option, lang string) dto.LocationOptionResponse {
	return dto.LocationOptionResponse{
		ID:     o.ID,
		Name:   displayName(o, lang),
		NameTH: o.NameTH,
		NameEN: o.NameEN,
	}
}

func toOptionResponses(opts []addressform.Option, lang string) []dto.LocationOptionResponse {
	result := make([]dto.LocationOptionResponse, 0, len(opts))
	for _, o := range opts {
		result = append(result, toOptionResponse(o, lang))
	}
	return result
}
