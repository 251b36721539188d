package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/ids"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/pricing"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

type AgentApplicationInput struct {
	UserID         string
	Region         string
	Specialization string
	Experience     string
}

// ApplyAsAgent files a buyer's request to become a sales agent. A user has at
// most one application.
func (s *LedgerService) ApplyAsAgent(ctx context.Context, in AgentApplicationInput) (models.AgentApplication, error) {
	if strings.TrimSpace(in.Region) == "" {
		return models.AgentApplication{}, fmt.Errorf("%w: region is required", ErrInvalidInput)
	}
	u, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return models.AgentApplication{}, err
	}
	if u.Role == models.UserRoleSalesAgent {
		return models.AgentApplication{}, ErrAlreadyApplied
	}
	prior, err := s.ledgers.AgentApplications.List(ctx, repository.Filter{"userId": in.UserID})
	if err != nil {
		return models.AgentApplication{}, err
	}
	if len(prior) > 0 {
		return models.AgentApplication{}, ErrAlreadyApplied
	}

	app := models.AgentApplication{
		UserID:         in.UserID,
		Region:         in.Region,
		Specialization: in.Specialization,
		Experience:     in.Experience,
		Status:         models.ReviewStatusPending,
		AppliedAt:      s.now().UTC(),
	}
	_, err = createWithID(ctx, s.ledgers.AgentApplications, ids.PrefixAgentApplication, func(id string) error {
		app.ID = id
		return s.ledgers.AgentApplications.Create(ctx, app)
	})
	if err != nil {
		return models.AgentApplication{}, fmt.Errorf("create agent application: %w", err)
	}
	publish(ctx, s.pub, repository.TableAgentApplications, events.OpInsert, app.ID, app)
	return app, nil
}

// ReviewAgentApplication decides a pending application. Approval promotes the
// user to sales agent in place; the user id does not change.
func (s *LedgerService) ReviewAgentApplication(ctx context.Context, id string, decision models.ReviewStatus) (models.AgentApplication, error) {
	if decision != models.ReviewStatusApproved && decision != models.ReviewStatusRejected {
		return models.AgentApplication{}, fmt.Errorf("%w: %q", ErrInvalidStatus, decision)
	}
	app, err := s.ledgers.AgentApplications.Get(ctx, id)
	if err != nil {
		return models.AgentApplication{}, err
	}
	if app.Status != models.ReviewStatusPending {
		return models.AgentApplication{}, fmt.Errorf("%w: application already %s", ErrInvalidStatus, app.Status)
	}

	if decision == models.ReviewStatusApproved {
		u, err := s.users.GetByID(ctx, app.UserID)
		if err != nil {
			return models.AgentApplication{}, err
		}
		u.Role = models.UserRoleSalesAgent
		u.CommissionRate = s.pricing.DefaultCommissionRate
		u.Profile.Region = app.Region
		u.Profile.Specialization = app.Specialization
		if err := s.users.Update(ctx, u); err != nil {
			return models.AgentApplication{}, fmt.Errorf("promote user: %w", err)
		}
		s.log.Info().Str("user_id", u.ID).Msg("user promoted to sales agent")
	}

	app.Status = decision
	if err := s.ledgers.AgentApplications.Update(ctx, app); err != nil {
		return models.AgentApplication{}, err
	}
	publish(ctx, s.pub, repository.TableAgentApplications, events.OpUpdate, app.ID, app)
	return app, nil
}

func (s *LedgerService) AgentApplications(ctx context.Context, status models.ReviewStatus) ([]models.AgentApplication, error) {
	f := repository.Filter{}
	if status != "" {
		f["status"] = string(status)
	}
	return s.ledgers.AgentApplications.List(ctx, f)
}

type FinancingInput struct {
	UserID     string
	VehicleID  string
	LoanAmount decimal.Decimal
	AnnualRate decimal.Decimal
	TermMonths int
}

func (s *LedgerService) ApplyForFinancing(ctx context.Context, in FinancingInput) (models.FinancingApplication, error) {
	if !in.LoanAmount.IsPositive() || in.AnnualRate.IsNegative() {
		return models.FinancingApplication{}, fmt.Errorf("%w: loan amount and rate", ErrInvalidInput)
	}
	payment, err := pricing.MonthlyPayment(in.LoanAmount, in.AnnualRate, in.TermMonths)
	if err != nil {
		return models.FinancingApplication{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.vehicles.GetByID(ctx, in.VehicleID); err != nil {
		return models.FinancingApplication{}, err
	}

	app := models.FinancingApplication{
		UserID:         in.UserID,
		VehicleID:      in.VehicleID,
		LoanAmount:     in.LoanAmount,
		AnnualRate:     in.AnnualRate,
		TermMonths:     in.TermMonths,
		MonthlyPayment: payment,
		Status:         models.FinancingStatusSubmitted,
		CreatedAt:      s.now().UTC(),
	}
	_, err = createWithID(ctx, s.ledgers.Financing, ids.PrefixFinancingApplication, func(id string) error {
		app.ID = id
		return s.ledgers.Financing.Create(ctx, app)
	})
	if err != nil {
		return models.FinancingApplication{}, fmt.Errorf("create financing application: %w", err)
	}
	publish(ctx, s.pub, repository.TableFinancingApplications, events.OpInsert, app.ID, app)
	return app, nil
}

func (s *LedgerService) SetFinancingStatus(ctx context.Context, id string, status models.FinancingStatus) (models.FinancingApplication, error) {
	if !status.Valid() {
		return models.FinancingApplication{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	app, err := s.ledgers.Financing.Get(ctx, id)
	if err != nil {
		return models.FinancingApplication{}, err
	}
	app.Status = status
	if err := s.ledgers.Financing.Update(ctx, app); err != nil {
		return models.FinancingApplication{}, err
	}
	publish(ctx, s.pub, repository.TableFinancingApplications, events.OpUpdate, app.ID, app)
	return app, nil
}

func (s *LedgerService) FinancingApplications(ctx context.Context, userID string) ([]models.FinancingApplication, error) {
	f := repository.Filter{}
	if userID != "" {
		f["userId"] = userID
	}
	return s.ledgers.Financing.List(ctx, f)
}
