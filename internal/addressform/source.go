package addressform

import "context"

// Option one selectable region at any level of the hierarchy
type Option struct {
	ID     int    `json:"id"`
	NameTH string `json:"name_th,omitempty"`
	NameEN string `json:"name_en,omitempty"`
}

// Name display name; a missing Thai name falls back to English
func (o Option) Name() string {
	if o.NameTH != "" {
		return o.NameTH
	}
	return o.NameEN
}

// IsZero reports whether nothing is selected
func (o Option) IsZero() bool { return o.ID == 0 }

// Filter scope and search text for one level
type Filter struct {
	ProvinceID int
	DistrictID int
	Search     string
	Limit      int
}

// Fetcher lists the options of a single level
type Fetcher interface {
	Fetch(ctx context.Context, f Filter) ([]Option, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, f Filter) ([]Option, error)

// Fetch calls fn
func (fn FetcherFunc) Fetch(ctx context.Context, f Filter) ([]Option, error) { return fn(ctx, f) }

// PostalMatch a postal code together with the tuple it belongs to
type PostalMatch struct {
	PostalCode  string `json:"postal_code"`
	Province    Option `json:"province"`
	District    Option `json:"district"`
	SubDistrict Option `json:"sub_district"`
}

// PostalCodeFetcher lists postal-code suggestions for a prefix
type PostalCodeFetcher interface {
	FetchPostalCodes(ctx context.Context, prefix string) ([]PostalMatch, error)
}

// PostalCodeResolver resolves an exact selection to its postal code.
// found=false is a normal outcome, not an error.
type PostalCodeResolver interface {
	ResolvePostalCode(ctx context.Context, provinceID, districtID, subDistrictID int) (code string, found bool, err error)
}

// Source the per-level capabilities a Form draws from
type Source struct {
	Provinces    Fetcher
	Districts    Fetcher
	SubDistricts Fetcher
	PostalCodes  PostalCodeFetcher
	Resolver     PostalCodeResolver
}
