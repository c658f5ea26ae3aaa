// Package addressform drives the cascading address selection: province,
// then district, then sub-district, then postal code, or a postal-code
// suggestion that fills everything at once.
package addressform

import (
	"context"
	"errors"
	"fmt"
)

// State position of a Form in the selection sequence
type State int

const (
	NoProvince State = iota
	ProvinceSelected
	DistrictSelected
	SubDistrictSelected
	PostalCodeResolved
)

func (s State) String() string {
	switch s {
	case NoProvince:
		return "no_province"
	case ProvinceSelected:
		return "province_selected"
	case DistrictSelected:
		return "district_selected"
	case SubDistrictSelected:
		return "sub_district_selected"
	case PostalCodeResolved:
		return "postal_code_resolved"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrIncomplete      = errors.New("address is incomplete")
	ErrOutOfOrder      = errors.New("upstream level not selected")
	ErrOptionNotFound  = errors.New("option not found in scope")
	ErrInvalidPostal   = errors.New("postal match is incomplete")
	ErrPostalNotListed = errors.New("postal code not found")
)

// selectLimit large enough to hold every option of one scope
const selectLimit = 500

// Address a fully resolved selection
type Address struct {
	Province    Option
	District    Option
	SubDistrict Option
	PostalCode  string
}

// Form holds one in-progress selection. Not safe for concurrent use.
type Form struct {
	src         Source
	province    Option
	district    Option
	subDistrict Option
	postalCode  string
}

// New creates an empty form over src
func New(src Source) *Form {
	return &Form{src: src}
}

// State derives the current state from the filled fields
func (f *Form) State() State {
	switch {
	case f.postalCode != "":
		return PostalCodeResolved
	case !f.subDistrict.IsZero():
		return SubDistrictSelected
	case !f.district.IsZero():
		return DistrictSelected
	case !f.province.IsZero():
		return ProvinceSelected
	}
	return NoProvince
}

func (f *Form) Province() Option    { return f.province }
func (f *Form) District() Option    { return f.district }
func (f *Form) SubDistrict() Option { return f.subDistrict }
func (f *Form) PostalCode() string  { return f.postalCode }

// ── options ──

// ProvinceOptions lists provinces matching search
func (f *Form) ProvinceOptions(ctx context.Context, search string) ([]Option, error) {
	return f.src.Provinces.Fetch(ctx, Filter{Search: search})
}

// DistrictOptions lists districts of the selected province
func (f *Form) DistrictOptions(ctx context.Context, search string) ([]Option, error) {
	if f.province.IsZero() {
		return nil, ErrOutOfOrder
	}
	return f.src.Districts.Fetch(ctx, Filter{ProvinceID: f.province.ID, Search: search})
}

// SubDistrictOptions lists sub-districts of the selected district
func (f *Form) SubDistrictOptions(ctx context.Context, search string) ([]Option, error) {
	if f.district.IsZero() {
		return nil, ErrOutOfOrder
	}
	return f.src.SubDistricts.Fetch(ctx, Filter{
		ProvinceID: f.province.ID,
		DistrictID: f.district.ID,
		Search:     search,
	})
}

// SuggestPostalCodes lists every tuple whose postal code starts with prefix
func (f *Form) SuggestPostalCodes(ctx context.Context, prefix string) ([]PostalMatch, error) {
	return f.src.PostalCodes.FetchPostalCodes(ctx, prefix)
}

// ── transitions ──

// SelectProvince picks a province and clears everything below it
func (f *Form) SelectProvince(ctx context.Context, id int) error {
	opts, err := f.src.Provinces.Fetch(ctx, Filter{Limit: selectLimit})
	if err != nil {
		return err
	}
	opt, ok := findOption(opts, id)
	if !ok {
		return fmt.Errorf("province %d: %w", id, ErrOptionNotFound)
	}

	f.province = opt
	f.district = Option{}
	f.subDistrict = Option{}
	f.postalCode = ""
	return nil
}

// SelectDistrict picks a district of the selected province and clears below it
func (f *Form) SelectDistrict(ctx context.Context, id int) error {
	if f.province.IsZero() {
		return ErrOutOfOrder
	}
	opts, err := f.src.Districts.Fetch(ctx, Filter{ProvinceID: f.province.ID, Limit: selectLimit})
	if err != nil {
		return err
	}
	opt, ok := findOption(opts, id)
	if !ok {
		return fmt.Errorf("district %d: %w", id, ErrOptionNotFound)
	}

	f.district = opt
	f.subDistrict = Option{}
	f.postalCode = ""
	return nil
}

// SelectSubDistrict picks a sub-district of the selected district and
// resolves its postal code. When the reference data has no code the form
// stays in SubDistrictSelected.
func (f *Form) SelectSubDistrict(ctx context.Context, id int) error {
	if f.district.IsZero() {
		return ErrOutOfOrder
	}
	opts, err := f.src.SubDistricts.Fetch(ctx, Filter{
		ProvinceID: f.province.ID,
		DistrictID: f.district.ID,
		Limit:      selectLimit,
	})
	if err != nil {
		return err
	}
	opt, ok := findOption(opts, id)
	if !ok {
		return fmt.Errorf("sub-district %d: %w", id, ErrOptionNotFound)
	}

	f.subDistrict = opt
	f.postalCode = ""

	code, found, err := f.src.Resolver.ResolvePostalCode(ctx, f.province.ID, f.district.ID, opt.ID)
	if err != nil {
		return err
	}
	if found {
		f.postalCode = code
	}
	return nil
}

// SelectPostalCode jumps to PostalCodeResolved from any state, overwriting
// every upstream field with the match's tuple.
func (f *Form) SelectPostalCode(m PostalMatch) error {
	if m.PostalCode == "" || m.Province.IsZero() || m.District.IsZero() || m.SubDistrict.IsZero() {
		return ErrInvalidPostal
	}
	f.province = m.Province
	f.district = m.District
	f.subDistrict = m.SubDistrict
	f.postalCode = m.PostalCode
	return nil
}

// SelectPostalCodeFor looks up the suggestions for code and selects the one
// for subDistrictID, or the first one when subDistrictID is zero.
func (f *Form) SelectPostalCodeFor(ctx context.Context, code string, subDistrictID int) error {
	matches, err := f.src.PostalCodes.FetchPostalCodes(ctx, code)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.PostalCode != code {
			continue
		}
		if subDistrictID == 0 || m.SubDistrict.ID == subDistrictID {
			return f.SelectPostalCode(m)
		}
	}
	return fmt.Errorf("%s: %w", code, ErrPostalNotListed)
}

// Address returns the selection; only the terminal state may be submitted
func (f *Form) Address() (Address, error) {
	if f.State() != PostalCodeResolved {
		return Address{}, ErrIncomplete
	}
	return Address{
		Province:    f.province,
		District:    f.district,
		SubDistrict: f.subDistrict,
		PostalCode:  f.postalCode,
	}, nil
}

func findOption(opts []Option, id int) (Option, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}
