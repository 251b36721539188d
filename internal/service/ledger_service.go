package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ldotspots/zuco-motors/internal/config"
	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/ids"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

// LedgerService records the marketplace's business events: inquiries, sales,
// allocations and the various applications.
type LedgerService struct {
	ledgers  Ledgers
	users    UserStore
	vehicles VehicleStore
	catalog  *CatalogService
	queue    events.Queue
	pub      events.Publisher
	pricing  config.PricingConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewLedgerService(ledgers Ledgers, users UserStore, vehicles VehicleStore, catalog *CatalogService, queue events.Queue, pub events.Publisher, pricing config.PricingConfig, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		ledgers:  ledgers,
		users:    users,
		vehicles: vehicles,
		catalog:  catalog,
		queue:    queue,
		pub:      pub,
		pricing:  pricing,
		log:      log,
		now:      time.Now,
	}
}

func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// enqueue hands follow-up work to the worker. The record it follows is
// already stored, so a failure is logged rather than returned.
func (s *LedgerService) enqueue(ctx context.Context, t events.Task) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, t); err != nil {
		s.log.Error().Err(err).Str("task", t.Type).Msg("enqueue task failed")
	}
}

type InquiryRequest struct {
	VehicleID string
	BuyerID   string
	Subject   string
	Message   string
}

func (s *LedgerService) CreateInquiry(ctx context.Context, req InquiryRequest) (models.Inquiry, error) {
	if strings.TrimSpace(req.Message) == "" {
		return models.Inquiry{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	v, err := s.vehicles.GetByID(ctx, req.VehicleID)
	if err != nil {
		return models.Inquiry{}, err
	}

	now := s.now().UTC()
	inq := models.Inquiry{
		VehicleID:      v.ID,
		BuyerID:        req.BuyerID,
		AgentID:        v.AssignedAgentID,
		Subject:        req.Subject,
		Message:        req.Message,
		Status:         models.InquiryStatusOpen,
		Communications: []models.Communication{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if inq.Subject == "" {
		inq.Subject = fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
	}

	_, err = createWithID(ctx, s.ledgers.Inquiries, ids.PrefixInquiry, func(id string) error {
		inq.ID = id
		return s.ledgers.Inquiries.Create(ctx, inq)
	})
	if err != nil {
		return models.Inquiry{}, fmt.Errorf("create inquiry: %w", err)
	}

	publish(ctx, s.pub, repository.TableInquiries, events.OpInsert, inq.ID, inq)
	return inq, nil
}

func (s *LedgerService) SetInquiryStatus(ctx context.Context, id string, status models.InquiryStatus) (models.Inquiry, error) {
	if !status.Valid() {
		return models.Inquiry{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	inq, err := s.ledgers.Inquiries.Get(ctx, id)
	if err != nil {
		return models.Inquiry{}, err
	}
	inq.Status = status
	inq.UpdatedAt = s.now().UTC()
	if err := s.ledgers.Inquiries.Update(ctx, inq); err != nil {
		return models.Inquiry{}, err
	}
	publish(ctx, s.pub, repository.TableInquiries, events.OpUpdate, inq.ID, inq)
	return inq, nil
}

// AddCommunication appends to an inquiry's message log. Entries are never
// edited or removed.
func (s *LedgerService) AddCommunication(ctx context.Context, inquiryID, from, channel, message string) (models.Inquiry, error) {
	if strings.TrimSpace(message) == "" {
		return models.Inquiry{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if channel == "" {
		channel = "note"
	}
	inq, err := s.ledgers.Inquiries.Get(ctx, inquiryID)
	if err != nil {
		return models.Inquiry{}, err
	}

	now := s.now().UTC()
	inq.Communications = append(inq.Communications, models.Communication{
		ID:      ids.New(),
		From:    from,
		Channel: channel,
		Message: message,
		At:      now,
	})
	inq.UpdatedAt = now
	if err := s.ledgers.Inquiries.Update(ctx, inq); err != nil {
		return models.Inquiry{}, err
	}
	publish(ctx, s.pub, repository.TableInquiries, events.OpUpdate, inq.ID, inq)
	return inq, nil
}

func (s *LedgerService) Inquiry(ctx context.Context, id string) (models.Inquiry, error) {
	return s.ledgers.Inquiries.Get(ctx, id)
}

func (s *LedgerService) Inquiries(ctx context.Context, f BookingFilter) ([]models.Inquiry, error) {
	return s.ledgers.Inquiries.List(ctx, f.filter())
}

type QuoteInput struct {
	VehicleID string
	BuyerID   string
	Name      string
	Email     string
	Phone     string
	Message   string
}

// RequestQuote stores a quote request. Guests may ask, so BuyerID is
// optional but a contact email is not.
func (s *LedgerService) RequestQuote(ctx context.Context, in QuoteInput) (models.QuoteRequest, error) {
	if !emailPattern.MatchString(strings.TrimSpace(in.Email)) {
		return models.QuoteRequest{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if _, err := s.vehicles.GetByID(ctx, in.VehicleID); err != nil {
		return models.QuoteRequest{}, err
	}

	q := models.QuoteRequest{
		VehicleID: in.VehicleID,
		BuyerID:   in.BuyerID,
		Name:      in.Name,
		Email:     strings.TrimSpace(in.Email),
		Phone:     in.Phone,
		Message:   in.Message,
		Status:    models.QuoteStatusNew,
		CreatedAt: s.now().UTC(),
	}
	_, err := createWithID(ctx, s.ledgers.Quotes, ids.PrefixQuote, func(id string) error {
		q.ID = id
		return s.ledgers.Quotes.Create(ctx, q)
	})
	if err != nil {
		return models.QuoteRequest{}, fmt.Errorf("create quote request: %w", err)
	}

	publish(ctx, s.pub, repository.TableQuoteRequests, events.OpInsert, q.ID, q)
	return q, nil
}

// RespondQuote sets a quote's status and, when given, the quoted price.
func (s *LedgerService) RespondQuote(ctx context.Context, id string, status models.QuoteStatus, price *decimal.Decimal) (models.QuoteRequest, error) {
	if !status.Valid() {
		return models.QuoteRequest{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	q, err := s.ledgers.Quotes.Get(ctx, id)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	q.Status = status
	if price != nil {
		if price.IsNegative() {
			return models.QuoteRequest{}, fmt.Errorf("%w: quoted price", ErrInvalidInput)
		}
		q.QuotedPrice = price
	}
	if err := s.ledgers.Quotes.Update(ctx, q); err != nil {
		return models.QuoteRequest{}, err
	}
	publish(ctx, s.pub, repository.TableQuoteRequests, events.OpUpdate, q.ID, q)
	return q, nil
}

func (s *LedgerService) Quotes(ctx context.Context, status models.QuoteStatus) ([]models.QuoteRequest, error) {
	f := repository.Filter{}
	if status != "" {
		f["status"] = string(status)
	}
	return s.ledgers.Quotes.List(ctx, f)
}
