package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InquiryStatus string

const (
	InquiryStatusOpen        InquiryStatus = "open"
	InquiryStatusContacted   InquiryStatus = "contacted"
	InquiryStatusNegotiating InquiryStatus = "negotiating"
	InquiryStatusClosedWon   InquiryStatus = "closed-won"
	InquiryStatusClosedLost  InquiryStatus = "closed-lost"
)

func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryStatusOpen, InquiryStatusContacted, InquiryStatusNegotiating, InquiryStatusClosedWon, InquiryStatusClosedLost:
		return true
	}
	return false
}

type Communication struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Channel string    `json:"channel"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Inquiry struct {
	ID             string          `json:"id"`
	VehicleID      string          `json:"vehicleId"`
	BuyerID        string          `json:"buyerId"`
	AgentID        string          `json:"agentId"`
	Subject        string          `json:"subject"`
	Message        string          `json:"message"`
	Status         InquiryStatus   `json:"status"`
	Communications []Communication `json:"communications"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

const TransactionStatusCompleted = "completed"

type Transaction struct {
	ID             string          `json:"id"`
	VehicleID      string          `json:"vehicleId"`
	BuyerID        string          `json:"buyerId"`
	AgentID        string          `json:"agentId"`
	SalePrice      decimal.Decimal `json:"salePrice"`
	TradeInValue   decimal.Decimal `json:"tradeInValue"`
	TaxableAmount  decimal.Decimal `json:"taxableAmount"`
	Tax            decimal.Decimal `json:"tax"`
	Fees           decimal.Decimal `json:"fees"`
	Total          decimal.Decimal `json:"total"`
	NetCost        decimal.Decimal `json:"netCost"`
	GrossProfit    decimal.Decimal `json:"grossProfit"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
	Commission     decimal.Decimal `json:"commission"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type AllocationStatus string

const (
	AllocationStatusActive   AllocationStatus = "active"
	AllocationStatusReleased AllocationStatus = "released"
)

type Allocation struct {
	ID          string           `json:"id"`
	VehicleID   string           `json:"vehicleId"`
	AgentID     string           `json:"agentId"`
	Status      AllocationStatus `json:"status"`
	AllocatedAt time.Time        `json:"allocatedAt"`
	ReleasedAt  *time.Time       `json:"releasedAt,omitempty"`
}

type TestDriveStatus string

const (
	TestDriveStatusScheduled TestDriveStatus = "scheduled"
	TestDriveStatusCompleted TestDriveStatus = "completed"
	TestDriveStatusCancelled TestDriveStatus = "cancelled"
	TestDriveStatusNoShow    TestDriveStatus = "no-show"
)

func (s TestDriveStatus) Valid() bool {
	switch s {
	case TestDriveStatusScheduled, TestDriveStatusCompleted, TestDriveStatusCancelled, TestDriveStatusNoShow:
		return true
	}
	return false
}

type TestDrive struct {
	ID        string          `json:"id"`
	VehicleID string          `json:"vehicleId"`
	BuyerID   string          `json:"buyerId"`
	AgentID   string          `json:"agentId"`
	Date      string          `json:"date"`
	Time      string          `json:"time"`
	Status    TestDriveStatus `json:"status"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ViewingStatus string

const (
	ViewingStatusPending   ViewingStatus = "pending"
	ViewingStatusApproved  ViewingStatus = "approved"
	ViewingStatusRejected  ViewingStatus = "rejected"
	ViewingStatusCompleted ViewingStatus = "completed"
	ViewingStatusCancelled ViewingStatus = "cancelled"
	ViewingStatusExpired   ViewingStatus = "expired"
)

func (s ViewingStatus) Valid() bool {
	switch s {
	case ViewingStatusPending, ViewingStatusApproved, ViewingStatusRejected,
		ViewingStatusCompleted, ViewingStatusCancelled, ViewingStatusExpired:
		return true
	}
	return false
}

// Holds reports whether a viewing in this status still occupies its slot.
func (s ViewingStatus) Holds() bool {
	return s == ViewingStatusPending || s == ViewingStatusApproved
}

type ViewingBooking struct {
	ID        string        `json:"id"`
	VehicleID string        `json:"vehicleId"`
	BuyerID   string        `json:"buyerId"`
	AgentID   string        `json:"agentId"`
	Date      string        `json:"date"`
	TimeSlot  string        `json:"timeSlot"`
	Status    ViewingStatus `json:"status"`
	Notes     string        `json:"notes"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ReviewStatus is shared by records a dealer approves or rejects.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) Valid() bool {
	return s == ReviewStatusPending || s == ReviewStatusApproved || s == ReviewStatusRejected
}

type AgentSale struct {
	ID             string          `json:"id"`
	VehicleID      string          `json:"vehicleId"`
	AgentID        string          `json:"agentId"`
	BuyerName      string          `json:"buyerName"`
	BuyerEmail     string          `json:"buyerEmail"`
	AgreedPrice    decimal.Decimal `json:"agreedPrice"`
	AgentCostPrice decimal.Decimal `json:"agentCostPrice"`
	AgentProfit    decimal.Decimal `json:"agentProfit"`
	Status         ReviewStatus    `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	ReviewedAt     *time.Time      `json:"reviewedAt,omitempty"`
}

type QuoteStatus string

const (
	QuoteStatusNew       QuoteStatus = "new"
	QuoteStatusResponded QuoteStatus = "responded"
	QuoteStatusClosed    QuoteStatus = "closed"
)

func (s QuoteStatus) Valid() bool {
	return s == QuoteStatusNew || s == QuoteStatusResponded || s == QuoteStatusClosed
}

type QuoteRequest struct {
	ID          string           `json:"id"`
	VehicleID   string           `json:"vehicleId"`
	BuyerID     string           `json:"buyerId,omitempty"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	Message     string           `json:"message"`
	Status      QuoteStatus      `json:"status"`
	QuotedPrice *decimal.Decimal `json:"quotedPrice,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type AgentApplication struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	Region         string       `json:"region"`
	Specialization string       `json:"specialization"`
	Experience     string       `json:"experience"`
	Status         ReviewStatus `json:"status"`
	AppliedAt      time.Time    `json:"appliedAt"`
}

type FinancingStatus string

const (
	FinancingStatusSubmitted FinancingStatus = "submitted"
	FinancingStatusApproved  FinancingStatus = "approved"
	FinancingStatusDeclined  FinancingStatus = "declined"
)

func (s FinancingStatus) Valid() bool {
	return s == FinancingStatusSubmitted || s == FinancingStatusApproved || s == FinancingStatusDeclined
}

type FinancingApplication struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	VehicleID      string          `json:"vehicleId"`
	LoanAmount     decimal.Decimal `json:"loanAmount"`
	AnnualRate     decimal.Decimal `json:"annualRate"`
	TermMonths     int             `json:"termMonths"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	Status         FinancingStatus `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}
