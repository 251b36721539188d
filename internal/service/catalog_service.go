package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/ids"
	"github.com/ldotspots/zuco-motors/internal/media/sniffer"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/pricing"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

const maxCompared = 3

// AgentVehicle is a vehicle as a sales agent sees it. Its Pricing field
// replaces the stored pricing record, so invoice cost never leaves the
// service.
type AgentVehicle struct {
	models.Vehicle
	Pricing pricing.AgentPricing `json:"pricing"`
}

type CatalogService struct {
	vehicles   VehicleStore
	users      UserStore
	images     ImageStore
	pub        events.Publisher
	marginRate float64
	log        zerolog.Logger
	now        func() time.Time
}

// NewCatalogService wires the catalog. images may be nil, in which case
// uploads fail with ErrNoImageStore.
func NewCatalogService(vehicles VehicleStore, users UserStore, images ImageStore, pub events.Publisher, marginRate float64, log zerolog.Logger) *CatalogService {
	if marginRate <= 0 {
		marginRate = pricing.DefaultCompanyMarginRate
	}
	return &CatalogService{
		vehicles:   vehicles,
		users:      users,
		images:     images,
		pub:        pub,
		marginRate: marginRate,
		log:        log,
		now:        time.Now,
	}
}

func (s *CatalogService) WithClock(now func() time.Time) *CatalogService {
	s.now = now
	return s
}

func (s *CatalogService) Get(ctx context.Context, id string) (models.Vehicle, error) {
	return s.vehicles.GetByID(ctx, id)
}

func (s *CatalogService) Search(ctx context.Context, q VehicleQuery) ([]models.Vehicle, error) {
	all, err := s.vehicles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return FilterVehicles(all, q), nil
}

func (s *CatalogService) Create(ctx context.Context, v models.Vehicle) (models.Vehicle, error) {
	if err := validateVehicle(v); err != nil {
		return models.Vehicle{}, err
	}
	if err := pricing.CheckMarkup(v.Pricing); err != nil {
		return models.Vehicle{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now().UTC()
	v.Pricing = pricing.Apply(v.Pricing)
	v.Views = 0
	v.AddedDate = now
	v.UpdatedAt = now
	if v.Status == "" {
		v.Status = models.VehicleStatusAvailable
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	if v.Features == nil {
		v.Features = []string{}
	}

	_, err := createWithID(ctx, s.vehicles, ids.PrefixVehicle, func(id string) error {
		v.ID = id
		return s.vehicles.Create(ctx, v)
	})
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}

	s.log.Info().Str("vehicle_id", v.ID).Str("stock_number", v.StockNumber).Msg("vehicle added")
	publish(ctx, s.pub, repository.TableVehicles, events.OpInsert, v.ID, v)
	return v, nil
}

func validateVehicle(v models.Vehicle) error {
	switch {
	case v.Make == "" || v.Model == "":
		return fmt.Errorf("%w: make and model are required", ErrInvalidInput)
	case v.Year < 1900:
		return fmt.Errorf("%w: year", ErrInvalidInput)
	case v.Mileage < 0:
		return fmt.Errorf("%w: mileage", ErrInvalidInput)
	case v.Status != "" && !v.Status.Valid():
		return fmt.Errorf("%w: %q", ErrInvalidStatus, v.Status)
	case v.Pricing.InvoiceCost.IsNegative():
		return fmt.Errorf("%w: invoice cost", ErrInvalidInput)
	}
	return nil
}

// Update replaces the descriptive fields of a vehicle. Views, added date and
// images are kept from the stored record; pricing is re-derived.
func (s *CatalogService) Update(ctx context.Context, id string, v models.Vehicle) (models.Vehicle, error) {
	current, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return models.Vehicle{}, err
	}
	if err := validateVehicle(v); err != nil {
		return models.Vehicle{}, err
	}
	if err := pricing.CheckMarkup(v.Pricing); err != nil {
		return models.Vehicle{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	v.ID = current.ID
	v.Views = current.Views
	v.AddedDate = current.AddedDate
	v.Images = current.Images
	if v.Status == "" {
		v.Status = current.Status
	}
	if v.Features == nil {
		v.Features = current.Features
	}
	v.Pricing = pricing.Apply(v.Pricing)
	return s.save(ctx, v)
}

func (s *CatalogService) save(ctx context.Context, v models.Vehicle) (models.Vehicle, error) {
	v.UpdatedAt = s.now().UTC()
	if err := s.vehicles.Update(ctx, v); err != nil {
		return models.Vehicle{}, err
	}
	publish(ctx, s.pub, repository.TableVehicles, events.OpUpdate, v.ID, v)
	return v, nil
}

// UpdatePricing replaces the pricing record and returns the vehicle with its
// derived sale price and net cost alongside the full breakdown.
func (s *CatalogService) UpdatePricing(ctx context.Context, id string, p models.Pricing) (models.Vehicle, pricing.Breakdown, error) {
	if err := pricing.CheckMarkup(p); err != nil {
		return models.Vehicle{}, pricing.Breakdown{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return models.Vehicle{}, pricing.Breakdown{}, err
	}
	v.Pricing = pricing.Apply(p)
	v, err = s.save(ctx, v)
	if err != nil {
		return models.Vehicle{}, pricing.Breakdown{}, err
	}
	s.log.Info().Str("vehicle_id", id).Str("sale_price", v.Pricing.SalePrice.String()).Msg("vehicle repriced")
	return v, pricing.Calculate(v.Pricing), nil
}

func (s *CatalogService) SetStatus(ctx context.Context, id string, status models.VehicleStatus) (models.Vehicle, error) {
	if !status.Valid() {
		return models.Vehicle{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return models.Vehicle{}, err
	}
	v.Status = status
	return s.save(ctx, v)
}

// AssignAgent sets the vehicle's responsible sales agent. An empty agentID
// clears the assignment.
func (s *CatalogService) AssignAgent(ctx context.Context, id, agentID string) (models.Vehicle, error) {
	if agentID != "" {
		agent, err := s.users.GetByID(ctx, agentID)
		if err != nil {
			return models.Vehicle{}, err
		}
		if agent.Role != models.UserRoleSalesAgent {
			return models.Vehicle{}, fmt.Errorf("%w: %s is not a sales agent", ErrInvalidInput, agentID)
		}
	}
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return models.Vehicle{}, err
	}
	v.AssignedAgentID = agentID
	return s.save(ctx, v)
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.vehicles.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("vehicle_id", id).Msg("vehicle removed")
	publish(ctx, s.pub, repository.TableVehicles, events.OpDelete, id, nil)
	return nil
}

func (s *CatalogService) TrackView(ctx context.Context, id string) (int, error) {
	return s.vehicles.IncrementViews(ctx, id)
}

// ToggleFavorite adds the vehicle to the user's favorites, or removes it if
// present, and reports whether it is now a favorite.
func (s *CatalogService) ToggleFavorite(ctx context.Context, userID, vehicleID string) (bool, error) {
	if _, err := s.vehicles.GetByID(ctx, vehicleID); err != nil {
		return false, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	favorited := !user.IsFavorite(vehicleID)
	if favorited {
		user.Profile.Favorites = append(user.Profile.Favorites, vehicleID)
	} else {
		kept := user.Profile.Favorites[:0]
		for _, id := range user.Profile.Favorites {
			if id != vehicleID {
				kept = append(kept, id)
			}
		}
		user.Profile.Favorites = kept
	}

	if err := s.users.Update(ctx, user); err != nil {
		return false, err
	}
	return favorited, nil
}

// Favorites returns the user's favorite vehicles that still exist.
func (s *CatalogService) Favorites(ctx context.Context, userID string) ([]models.Vehicle, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.existing(ctx, user.Profile.Favorites)
}

func (s *CatalogService) existing(ctx context.Context, vehicleIDs []string) ([]models.Vehicle, error) {
	out := make([]models.Vehicle, 0, len(vehicleIDs))
	for _, id := range vehicleIDs {
		v, err := s.vehicles.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *CatalogService) Compare(ctx context.Context, vehicleIDs []string) ([]models.Vehicle, error) {
	if len(vehicleIDs) == 0 {
		return nil, fmt.Errorf("%w: no vehicles to compare", ErrInvalidInput)
	}
	if len(vehicleIDs) > maxCompared {
		return nil, ErrTooManyCompared
	}
	out := make([]models.Vehicle, 0, len(vehicleIDs))
	for _, id := range vehicleIDs {
		v, err := s.vehicles.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *CatalogService) AgentView(v models.Vehicle) AgentVehicle {
	return AgentVehicle{Vehicle: v, Pricing: pricing.ForAgent(v.Pricing, s.marginRate)}
}

func (s *CatalogService) AgentVehicle(ctx context.Context, id string) (AgentVehicle, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return AgentVehicle{}, err
	}
	return s.AgentView(v), nil
}

// AddImage sniffs the upload, stores it and appends its URL to the vehicle.
func (s *CatalogService) AddImage(ctx context.Context, vehicleID string, r io.Reader, size int64) (models.Vehicle, error) {
	if s.images == nil {
		return models.Vehicle{}, ErrNoImageStore
	}
	v, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return models.Vehicle{}, err
	}

	kind, head, err := sniffer.Detect(r)
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	key := fmt.Sprintf("vehicles/%s/%s.%s", vehicleID, ids.New(), kind.Type)
	url, err := s.images.Put(ctx, key, io.MultiReader(bytes.NewReader(head), r), size, kind.MIME)
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("store image: %w", err)
	}

	v.Images = append(v.Images, url)
	saved, err := s.save(ctx, v)
	if err != nil {
		if rmErr := s.images.Remove(ctx, key); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("key", key).Msg("orphaned vehicle image")
		}
		return models.Vehicle{}, err
	}
	s.log.Info().Str("vehicle_id", vehicleID).Str("key", key).Str("mime", kind.MIME).Msg("vehicle image stored")
	return saved, nil
}
