package dto

// ── Location module DTOs ──

// LocationSearchRequest search over one hierarchy level
type LocationSearchRequest struct {
	Search string `form:"search" binding:"omitempty,max=100"`
	Limit  int    `form:"limit"  binding:"omitempty,min=1,max=500"`
	Lang   string `form:"lang"   binding:"omitempty,oneof=th en"`
}

// PostalCodeListRequest postal-code prefix search
type PostalCodeListRequest struct {
	Prefix string `form:"prefix" binding:"omitempty,max=5"`
	Limit  int    `form:"limit"  binding:"omitempty,min=1,max=500"`
	Lang   string `form:"lang"   binding:"omitempty,oneof=th en"`
}

// ResolvePostalCodeRequest exact selection to resolve
type ResolvePostalCodeRequest struct {
	ProvinceID    int `form:"province_id"     binding:"required,min=1"`
	DistrictID    int `form:"district_id"     binding:"required,min=1"`
	SubDistrictID int `form:"sub_district_id" binding:"required,min=1"`
}

// LocationOptionResponse one selectable province / district / sub-district
type LocationOptionResponse struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NameTH string `json:"name_th,omitempty"`
	NameEN string `json:"name_en,omitempty"`
}

// PostalCodeResponse one postal-code suggestion with its full tuple
type PostalCodeResponse struct {
	PostalCode  string                 `json:"postal_code"`
	Province    LocationOptionResponse `json:"province"`
	District    LocationOptionResponse `json:"district"`
	SubDistrict LocationOptionResponse `json:"sub_district"`
}

// ResolvePostalCodeResponse resolution result; Found=false is not an error
type ResolvePostalCodeResponse struct {
	Found      bool   `json:"found"`
	PostalCode string `json:"postal_code,omitempty"`
}
