package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ldotspots/zuco-motors/internal/models"
)

type SortField string

const (
	SortAdded   SortField = "added"
	SortPrice   SortField = "price"
	SortYear    SortField = "year"
	SortMileage SortField = "mileage"
	SortMake    SortField = "make"
	SortViews   SortField = "views"
)

func (f SortField) Valid() bool {
	switch f {
	case SortAdded, SortPrice, SortYear, SortMileage, SortMake, SortViews:
		return true
	}
	return false
}

// VehicleQuery narrows a catalog listing. Zero values leave a criterion
// unset.
type VehicleQuery struct {
	Text       string
	Make       string
	Model      string
	YearMin    int
	YearMax    int
	PriceMin   decimal.Decimal
	PriceMax   decimal.Decimal
	MileageMax int
	BodyStyle  string
	FuelType   string
	Condition  string
	Color      string
	Status     models.VehicleStatus
	AgentID    string
	Sort       SortField
	Desc       bool
}

func (q VehicleQuery) matches(v models.Vehicle) bool {
	if q.Text != "" {
		hay := strings.ToLower(strings.Join([]string{strconv.Itoa(v.Year), v.Make, v.Model, v.Trim}, " "))
		for _, word := range strings.Fields(strings.ToLower(q.Text)) {
			if !strings.Contains(hay, word) {
				return false
			}
		}
	}
	switch {
	case !equalFoldOpt(q.Make, v.Make),
		!equalFoldOpt(q.Model, v.Model),
		!equalFoldOpt(q.BodyStyle, v.BodyStyle),
		!equalFoldOpt(q.FuelType, v.Specs.FuelType),
		!equalFoldOpt(q.Condition, v.Condition),
		!equalFoldOpt(q.Color, v.ExteriorColor):
		return false
	case q.YearMin > 0 && v.Year < q.YearMin,
		q.YearMax > 0 && v.Year > q.YearMax,
		q.MileageMax > 0 && v.Mileage > q.MileageMax:
		return false
	case !q.PriceMin.IsZero() && v.Pricing.SalePrice.LessThan(q.PriceMin),
		!q.PriceMax.IsZero() && v.Pricing.SalePrice.GreaterThan(q.PriceMax):
		return false
	case q.Status != "" && v.Status != q.Status,
		q.AgentID != "" && v.AssignedAgentID != q.AgentID:
		return false
	}
	return true
}

func equalFoldOpt(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

// FilterVehicles returns the vehicles matching q in the requested order.
// The input slice is not modified. Without a sort field, newest first.
func FilterVehicles(vehicles []models.Vehicle, q VehicleQuery) []models.Vehicle {
	out := make([]models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if q.matches(v) {
			out = append(out, v)
		}
	}

	field, desc := q.Sort, q.Desc
	if field == "" {
		field, desc = SortAdded, true
	}
	less := lessBy(field)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func lessBy(field SortField) func(a, b models.Vehicle) bool {
	switch field {
	case SortPrice:
		return func(a, b models.Vehicle) bool { return a.Pricing.SalePrice.LessThan(b.Pricing.SalePrice) }
	case SortYear:
		return func(a, b models.Vehicle) bool { return a.Year < b.Year }
	case SortMileage:
		return func(a, b models.Vehicle) bool { return a.Mileage < b.Mileage }
	case SortMake:
		return func(a, b models.Vehicle) bool {
			return strings.ToLower(a.Make+" "+a.Model) < strings.ToLower(b.Make+" "+b.Model)
		}
	case SortViews:
		return func(a, b models.Vehicle) bool { return a.Views < b.Views }
	}
	return func(a, b models.Vehicle) bool { return a.AddedDate.Before(b.AddedDate) }
}
