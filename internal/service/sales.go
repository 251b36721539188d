package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/ids"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/pricing"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

type TransactionInput struct {
	VehicleID    string
	BuyerID      string
	SellerID     string
	SalePrice    decimal.Decimal
	TradeInValue decimal.Decimal
}

// RecordTransaction closes a sale. The sale price defaults to the vehicle's
// current sale price and the commission rate to the seller's own rate.
func (s *LedgerService) RecordTransaction(ctx context.Context, in TransactionInput) (models.Transaction, error) {
	if in.TradeInValue.IsNegative() || in.SalePrice.IsNegative() {
		return models.Transaction{}, fmt.Errorf("%w: amounts must not be negative", ErrInvalidInput)
	}
	v, err := s.vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		return models.Transaction{}, err
	}
	if v.Status == models.VehicleStatusSold {
		return models.Transaction{}, ErrVehicleSold
	}
	seller, err := s.users.GetByID(ctx, in.SellerID)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("load seller: %w", err)
	}

	salePrice := in.SalePrice
	if salePrice.IsZero() {
		salePrice = v.Pricing.SalePrice
	}
	rate := seller.CommissionRate
	if rate <= 0 {
		rate = s.pricing.DefaultCommissionRate
	}
	settled := pricing.Settle(pricing.SettlementInput{
		SalePrice:      salePrice,
		TradeInValue:   in.TradeInValue,
		NetCost:        v.Pricing.NetCost,
		TaxRate:        decimal.NewFromFloat(s.pricing.TaxRate),
		DocumentFee:    decimal.NewFromFloat(s.pricing.DocumentFee),
		CommissionRate: decimal.NewFromFloat(rate),
	})

	txn := models.Transaction{
		VehicleID:      v.ID,
		BuyerID:        in.BuyerID,
		AgentID:        seller.ID,
		SalePrice:      salePrice,
		TradeInValue:   in.TradeInValue,
		TaxableAmount:  settled.TaxableAmount,
		Tax:            settled.Tax,
		Fees:           settled.Fees,
		Total:          settled.Total,
		NetCost:        v.Pricing.NetCost,
		GrossProfit:    settled.GrossProfit,
		CommissionRate: decimal.NewFromFloat(rate),
		Commission:     settled.Commission,
		Status:         models.TransactionStatusCompleted,
		CreatedAt:      s.now().UTC(),
	}
	_, err = createWithID(ctx, s.ledgers.Transactions, ids.PrefixTransaction, func(id string) error {
		txn.ID = id
		return s.ledgers.Transactions.Create(ctx, txn)
	})
	if err != nil {
		return models.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	publish(ctx, s.pub, repository.TableTransactions, events.OpInsert, txn.ID, txn)

	if _, err := s.catalog.SetStatus(ctx, v.ID, models.VehicleStatusSold); err != nil {
		return txn, fmt.Errorf("mark vehicle sold: %w", err)
	}

	s.log.Info().
		Str("transaction_id", txn.ID).
		Str("vehicle_id", v.ID).
		Str("total", txn.Total.String()).
		Str("commission", txn.Commission.String()).
		Msg("sale recorded")
	s.enqueue(ctx, saleRecorded(seller.ID, salePrice))
	return txn, nil
}

func saleRecorded(userID string, amount decimal.Decimal) events.Task {
	return events.Task{
		Type: events.TaskSaleRecorded,
		Data: map[string]string{"userId": userID, "amount": amount.String()},
	}
}

func (s *LedgerService) Transactions(ctx context.Context, f BookingFilter) ([]models.Transaction, error) {
	return s.ledgers.Transactions.List(ctx, f.filter())
}

// Allocate gives an agent an active allocation of a vehicle. Several agents
// may hold the same vehicle; one agent may not hold it twice.
func (s *LedgerService) Allocate(ctx context.Context, vehicleID, agentID string) (models.Allocation, error) {
	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		return models.Allocation{}, err
	}
	if agent.Role != models.UserRoleSalesAgent {
		return models.Allocation{}, fmt.Errorf("%w: %s is not a sales agent", ErrInvalidInput, agentID)
	}
	v, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return models.Allocation{}, err
	}
	if v.Status == models.VehicleStatusSold {
		return models.Allocation{}, ErrVehicleSold
	}

	held, err := s.activeAllocations(ctx, repository.Filter{"vehicleId": vehicleID, "agentId": agentID})
	if err != nil {
		return models.Allocation{}, err
	}
	if len(held) > 0 {
		return models.Allocation{}, ErrAlreadyAllocated
	}

	a := models.Allocation{
		VehicleID:   vehicleID,
		AgentID:     agentID,
		Status:      models.AllocationStatusActive,
		AllocatedAt: s.now().UTC(),
	}
	_, err = createWithID(ctx, s.ledgers.Allocations, ids.PrefixAllocation, func(id string) error {
		a.ID = id
		return s.ledgers.Allocations.Create(ctx, a)
	})
	if err != nil {
		return models.Allocation{}, fmt.Errorf("create allocation: %w", err)
	}

	s.log.Info().Str("allocation_id", a.ID).Str("vehicle_id", vehicleID).Str("agent_id", agentID).Msg("vehicle allocated")
	publish(ctx, s.pub, repository.TableAllocations, events.OpInsert, a.ID, a)
	return a, nil
}

func (s *LedgerService) activeAllocations(ctx context.Context, f repository.Filter) ([]models.Allocation, error) {
	f["status"] = string(models.AllocationStatusActive)
	return s.ledgers.Allocations.List(ctx, f)
}

func (s *LedgerService) Release(ctx context.Context, allocationID string) (models.Allocation, error) {
	a, err := s.ledgers.Allocations.Get(ctx, allocationID)
	if err != nil {
		return models.Allocation{}, err
	}
	if a.Status == models.AllocationStatusReleased {
		return a, nil
	}
	now := s.now().UTC()
	a.Status = models.AllocationStatusReleased
	a.ReleasedAt = &now
	if err := s.ledgers.Allocations.Update(ctx, a); err != nil {
		return models.Allocation{}, err
	}
	publish(ctx, s.pub, repository.TableAllocations, events.OpUpdate, a.ID, a)
	return a, nil
}

func (s *LedgerService) Allocations(ctx context.Context, f BookingFilter) ([]models.Allocation, error) {
	return s.ledgers.Allocations.List(ctx, f.filter())
}

// AgentVehicles lists the vehicles an agent may sell, allocated or assigned,
// priced for the agent.
func (s *LedgerService) AgentVehicles(ctx context.Context, agentID string) ([]AgentVehicle, error) {
	held, err := s.activeAllocations(ctx, repository.Filter{"agentId": agentID})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var vehicleIDs []string
	for _, a := range held {
		if !seen[a.VehicleID] {
			seen[a.VehicleID] = true
			vehicleIDs = append(vehicleIDs, a.VehicleID)
		}
	}

	assigned, err := s.catalog.Search(ctx, VehicleQuery{AgentID: agentID})
	if err != nil {
		return nil, err
	}
	for _, v := range assigned {
		if !seen[v.ID] {
			seen[v.ID] = true
			vehicleIDs = append(vehicleIDs, v.ID)
		}
	}
	sort.Strings(vehicleIDs)

	vehicles, err := s.catalog.existing(ctx, vehicleIDs)
	if err != nil {
		return nil, err
	}
	out := make([]AgentVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, s.catalog.AgentView(v))
	}
	return out, nil
}

func (s *LedgerService) canSell(ctx context.Context, v models.Vehicle, agentID string) (bool, error) {
	if v.AssignedAgentID == agentID {
		return true, nil
	}
	held, err := s.activeAllocations(ctx, repository.Filter{"vehicleId": v.ID, "agentId": agentID})
	if err != nil {
		return false, err
	}
	return len(held) > 0, nil
}

type AgentSaleInput struct {
	VehicleID   string
	AgentID     string
	BuyerName   string
	BuyerEmail  string
	AgreedPrice decimal.Decimal
}

// RecordAgentSale submits an agent's sale for dealer review. The vehicle is
// held as Pending until the review.
func (s *LedgerService) RecordAgentSale(ctx context.Context, in AgentSaleInput) (models.AgentSale, error) {
	if !in.AgreedPrice.IsPositive() {
		return models.AgentSale{}, fmt.Errorf("%w: agreed price", ErrInvalidInput)
	}
	v, err := s.vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		return models.AgentSale{}, err
	}
	if v.Status == models.VehicleStatusSold {
		return models.AgentSale{}, ErrVehicleSold
	}
	ok, err := s.canSell(ctx, v, in.AgentID)
	if err != nil {
		return models.AgentSale{}, err
	}
	if !ok {
		return models.AgentSale{}, ErrNotAllocated
	}

	cost := s.catalog.AgentView(v).Pricing.AgentCostPrice
	sale := models.AgentSale{
		VehicleID:      v.ID,
		AgentID:        in.AgentID,
		BuyerName:      in.BuyerName,
		BuyerEmail:     in.BuyerEmail,
		AgreedPrice:    in.AgreedPrice,
		AgentCostPrice: cost,
		AgentProfit:    in.AgreedPrice.Sub(cost),
		Status:         models.ReviewStatusPending,
		CreatedAt:      s.now().UTC(),
	}
	_, err = createWithID(ctx, s.ledgers.AgentSales, ids.PrefixAgentSale, func(id string) error {
		sale.ID = id
		return s.ledgers.AgentSales.Create(ctx, sale)
	})
	if err != nil {
		return models.AgentSale{}, fmt.Errorf("create agent sale: %w", err)
	}
	publish(ctx, s.pub, repository.TableAgentSales, events.OpInsert, sale.ID, sale)

	if _, err := s.catalog.SetStatus(ctx, v.ID, models.VehicleStatusPending); err != nil {
		return sale, fmt.Errorf("hold vehicle: %w", err)
	}
	s.log.Info().Str("sale_id", sale.ID).Str("agent_id", sale.AgentID).Str("profit", sale.AgentProfit.String()).Msg("agent sale submitted")
	return sale, nil
}

// ReviewAgentSale approves or rejects a pending agent sale. Approval sells
// the vehicle; rejection makes it available again.
func (s *LedgerService) ReviewAgentSale(ctx context.Context, id string, decision models.ReviewStatus) (models.AgentSale, error) {
	if decision != models.ReviewStatusApproved && decision != models.ReviewStatusRejected {
		return models.AgentSale{}, fmt.Errorf("%w: %q", ErrInvalidStatus, decision)
	}
	sale, err := s.ledgers.AgentSales.Get(ctx, id)
	if err != nil {
		return models.AgentSale{}, err
	}
	if sale.Status != models.ReviewStatusPending {
		return models.AgentSale{}, fmt.Errorf("%w: sale already %s", ErrInvalidStatus, sale.Status)
	}

	now := s.now().UTC()
	sale.Status = decision
	sale.ReviewedAt = &now
	if err := s.ledgers.AgentSales.Update(ctx, sale); err != nil {
		return models.AgentSale{}, err
	}
	publish(ctx, s.pub, repository.TableAgentSales, events.OpUpdate, sale.ID, sale)

	next := models.VehicleStatusAvailable
	if decision == models.ReviewStatusApproved {
		next = models.VehicleStatusSold
	}
	if _, err := s.catalog.SetStatus(ctx, sale.VehicleID, next); err != nil {
		return sale, fmt.Errorf("update vehicle status: %w", err)
	}
	if decision == models.ReviewStatusApproved {
		s.enqueue(ctx, saleRecorded(sale.AgentID, sale.AgreedPrice))
	}
	return sale, nil
}

func (s *LedgerService) AgentSales(ctx context.Context, agentID string, status models.ReviewStatus) ([]models.AgentSale, error) {
	f := repository.Filter{}
	if agentID != "" {
		f["agentId"] = agentID
	}
	if status != "" {
		f["status"] = string(status)
	}
	return s.ledgers.AgentSales.List(ctx, f)
}

// RollupSale adds a completed sale to the seller's year to date total.
func (s *LedgerService) RollupSale(ctx context.Context, userID string, amount decimal.Decimal) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	u.Profile.YTDSales += amount.InexactFloat64()
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("update ytd sales: %w", err)
	}
	s.log.Debug().Str("user_id", userID).Float64("ytd_sales", u.Profile.YTDSales).Msg("sales rolled up")
	return nil
}
