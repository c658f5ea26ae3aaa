package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Nakkasenp65/register-item-delivery/internal/model"
)

// LocationRepository read-only access to the reference location table
type LocationRepository interface {
	ListProvinces(ctx context.Context) ([]model.Province, error)
	ListRows(ctx context.Context, q model.ZipCodeQuery) ([]model.ZipCodeRow, error)
	Ping(ctx context.Context) error
}

type locationRepo struct {
	db *gorm.DB
}

// NewLocationRepo creates a LocationRepository
func NewLocationRepo(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) ListProvinces(ctx context.Context) ([]model.Province, error) {
	var provinces []model.Province
	err := r.db.WithContext(ctx).Order("id ASC").Find(&provinces).Error
	return provinces, err
}

func (r *locationRepo) ListRows(ctx context.Context, q model.ZipCodeQuery) ([]model.ZipCodeRow, error) {
	var rows []model.ZipCodeRow
	db := r.db.WithContext(ctx).Model(&model.ZipCodeRow{})

	if q.ProvinceID > 0 {
		db = db.Where("province_id = ?", q.ProvinceID)
	}
	if q.DistrictID > 0 {
		db = db.Where("amphoe_id = ?", q.DistrictID)
	}
	if q.SubDistrictID > 0 {
		db = db.Where("tambon_id = ?", q.SubDistrictID)
	}
	if q.PostalCode != "" {
		db = db.Where("zip_code = ?", q.PostalCode)
	}
	if q.PostalPrefix != "" {
		db = db.Where("zip_code LIKE ?", escapeLike(q.PostalPrefix)+"%")
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	err := db.Order("zip_code ASC, province_id ASC, amphoe_id ASC, tambon_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *locationRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
