package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type VehicleStatus string

const (
	VehicleStatusAvailable VehicleStatus = "Available"
	VehicleStatusPending   VehicleStatus = "Pending"
	VehicleStatusReserved  VehicleStatus = "Reserved"
	VehicleStatusInTransit VehicleStatus = "In Transit"
	VehicleStatusSold      VehicleStatus = "Sold"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusAvailable, VehicleStatusPending, VehicleStatusReserved, VehicleStatusInTransit, VehicleStatusSold:
		return true
	}
	return false
}

type Specs struct {
	Engine       string `json:"engine"`
	Transmission string `json:"transmission"`
	Drivetrain   string `json:"drivetrain"`
	FuelType     string `json:"fuelType"`
	MPGCity      int    `json:"mpgCity"`
	MPGHighway   int    `json:"mpgHighway"`
	Doors        int    `json:"doors"`
	Seats        int    `json:"seats"`
}

// Pricing is the stored pricing record. SalePrice and NetCost are derived
// from the other fields and rewritten whenever pricing changes.
type Pricing struct {
	InvoiceCost   decimal.Decimal `json:"invoiceCost"`
	MSRP          decimal.Decimal `json:"msrp"`
	MinMarkup     decimal.Decimal `json:"minMarkup"`
	MaxMarkup     decimal.Decimal `json:"maxMarkup"`
	CurrentMarkup decimal.Decimal `json:"currentMarkup"`
	Holdback      decimal.Decimal `json:"holdback"`
	Incentives    decimal.Decimal `json:"incentives"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	NetCost       decimal.Decimal `json:"netCost"`
}

type Vehicle struct {
	ID              string        `json:"id"`
	VIN             string        `json:"vin"`
	StockNumber     string        `json:"stockNumber"`
	Year            int           `json:"year"`
	Make            string        `json:"make"`
	Model           string        `json:"model"`
	Trim            string        `json:"trim"`
	BodyStyle       string        `json:"bodyStyle"`
	Condition       string        `json:"condition"`
	ExteriorColor   string        `json:"exteriorColor"`
	InteriorColor   string        `json:"interiorColor"`
	Mileage         int           `json:"mileage"`
	Specs           Specs         `json:"specs"`
	Pricing         Pricing       `json:"pricing"`
	Status          VehicleStatus `json:"status"`
	AssignedAgentID string        `json:"assignedAgentId,omitempty"`
	Images          []string      `json:"images"`
	Features        []string      `json:"features"`
	Description     string        `json:"description"`
	Views           int           `json:"views"`
	AddedDate       time.Time     `json:"addedDate"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}
