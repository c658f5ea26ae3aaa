package model

// Province row of the provinces table
type Province struct {
	ID     int     `gorm:"primaryKey;column:id" json:"id"`
	NameTH *string `gorm:"column:name_th"       json:"name_th"`
	NameEN *string `gorm:"column:name_en"       json:"name_en"`
}

// TableName table name
func (Province) TableName() string { return "provinces" }

// ZipCodeRow one reference row of zip_code_view: a sub-district with one of
// its postal codes and the district and province above it.
type ZipCodeRow struct {
	ZipCode       string  `gorm:"column:zip_code"`
	SubDistrictID int     `gorm:"column:tambon_id"`
	SubDistrictTH *string `gorm:"column:tambon_name_th"`
	SubDistrictEN *string `gorm:"column:tambon_name_en"`
	DistrictID    int     `gorm:"column:amphoe_id"`
	DistrictTH    *string `gorm:"column:amphoe_name_th"`
	DistrictEN    *string `gorm:"column:amphoe_name_en"`
	ProvinceID    int     `gorm:"column:province_id"`
	ProvinceTH    *string `gorm:"column:province_name_th"`
	ProvinceEN    *string `gorm:"column:province_name_en"`
}

// TableName view name
func (ZipCodeRow) TableName() string { return "zip_code_view" }

// ZipCodeQuery filters over zip_code_view; zero values are ignored
type ZipCodeQuery struct {
	ProvinceID    int
	DistrictID    int
	SubDistrictID int
	PostalPrefix  string
	PostalCode    string
	Limit         int
}

// Str dereferences an optional name
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
