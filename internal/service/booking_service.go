package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ldotspots/zuco-motors/internal/availability"
	"github.com/ldotspots/zuco-motors/internal/cache"
	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/ids"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

// BookingService owns test drives and viewings. Inserts and reactivations
// happen under a per vehicle and day lock, with the availability check
// repeated once the lock is held.
type BookingService struct {
	drives   LedgerStore[models.TestDrive]
	viewings LedgerStore[models.ViewingBooking]
	vehicles VehicleStore
	locker   cache.Locker
	lockTTL  time.Duration
	pub      events.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewBookingService(drives LedgerStore[models.TestDrive], viewings LedgerStore[models.ViewingBooking], vehicles VehicleStore, locker cache.Locker, lockTTL time.Duration, pub events.Publisher, log zerolog.Logger) *BookingService {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &BookingService{
		drives:   drives,
		viewings: viewings,
		vehicles: vehicles,
		locker:   locker,
		lockTTL:  lockTTL,
		pub:      pub,
		log:      log,
		now:      time.Now,
	}
}

func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

func lockKey(vehicleID, date string) string {
	return "booking:" + vehicleID + ":" + date
}

// day loads every booking of the vehicle on date.
func (s *BookingService) day(ctx context.Context, vehicleID, date string) ([]models.TestDrive, []models.ViewingBooking, error) {
	f := repository.Filter{"vehicleId": vehicleID, "date": date}
	drives, err := s.drives.List(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("list test drives: %w", err)
	}
	viewings, err := s.viewings.List(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("list viewings: %w", err)
	}
	return drives, viewings, nil
}

func (s *BookingService) TestDriveSlots(ctx context.Context, vehicleID, date string) ([]string, error) {
	if _, err := availability.ParseDate(date); err != nil {
		return nil, err
	}
	drives, viewings, err := s.day(ctx, vehicleID, date)
	if err != nil {
		return nil, err
	}
	return availability.TestDriveSlots(vehicleID, date, drives, viewings), nil
}

func (s *BookingService) ViewingSlots(ctx context.Context, vehicleID, date string) ([]string, error) {
	if _, err := availability.ParseDate(date); err != nil {
		return nil, err
	}
	drives, viewings, err := s.day(ctx, vehicleID, date)
	if err != nil {
		return nil, err
	}
	return availability.ViewingSlots(vehicleID, date, drives, viewings), nil
}

// bookable loads the vehicle and rejects sold vehicles and past dates.
func (s *BookingService) bookable(ctx context.Context, vehicleID, date string) (models.Vehicle, error) {
	day, err := availability.ParseDate(date)
	if err != nil {
		return models.Vehicle{}, err
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return models.Vehicle{}, fmt.Errorf("%w: %s is in the past", ErrInvalidInput, date)
	}
	v, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return models.Vehicle{}, err
	}
	if v.Status == models.VehicleStatusSold {
		return models.Vehicle{}, ErrVehicleSold
	}
	return v, nil
}

func (s *BookingService) withLock(ctx context.Context, vehicleID, date string, fn func() error) error {
	release, err := s.locker.Acquire(ctx, lockKey(vehicleID, date), s.lockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockTimeout) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("acquire booking lock: %w", err)
	}
	defer release()
	return fn()
}

type TestDriveRequest struct {
	VehicleID string
	BuyerID   string
	Date      string
	Time      string
	Notes     string
}

func (s *BookingService) BookTestDrive(ctx context.Context, req TestDriveRequest) (models.TestDrive, error) {
	v, err := s.bookable(ctx, req.VehicleID, req.Date)
	if err != nil {
		return models.TestDrive{}, err
	}

	td := models.TestDrive{
		VehicleID: v.ID,
		BuyerID:   req.BuyerID,
		AgentID:   v.AssignedAgentID,
		Date:      req.Date,
		Time:      req.Time,
		Status:    models.TestDriveStatusScheduled,
		Notes:     req.Notes,
		CreatedAt: s.now().UTC(),
	}

	err = s.withLock(ctx, v.ID, req.Date, func() error {
		drives, viewings, err := s.day(ctx, v.ID, req.Date)
		if err != nil {
			return err
		}
		free, err := availability.TestDriveFree(v.ID, req.Date, req.Time, drives, viewings)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if !free {
			return ErrSlotUnavailable
		}
		_, err = createWithID(ctx, s.drives, ids.PrefixTestDrive, func(id string) error {
			td.ID = id
			return s.drives.Create(ctx, td)
		})
		return err
	})
	if err != nil {
		return models.TestDrive{}, err
	}

	s.log.Info().Str("test_drive_id", td.ID).Str("vehicle_id", td.VehicleID).Str("slot", td.Date+" "+td.Time).Msg("test drive booked")
	publish(ctx, s.pub, repository.TableTestDrives, events.OpInsert, td.ID, td)
	return td, nil
}

type ViewingRequest struct {
	VehicleID string
	BuyerID   string
	Date      string
	TimeSlot  string
	Notes     string
}

func (s *BookingService) BookViewing(ctx context.Context, req ViewingRequest) (models.ViewingBooking, error) {
	v, err := s.bookable(ctx, req.VehicleID, req.Date)
	if err != nil {
		return models.ViewingBooking{}, err
	}

	vb := models.ViewingBooking{
		VehicleID: v.ID,
		BuyerID:   req.BuyerID,
		AgentID:   v.AssignedAgentID,
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		Status:    models.ViewingStatusPending,
		Notes:     req.Notes,
		CreatedAt: s.now().UTC(),
	}

	err = s.withLock(ctx, v.ID, req.Date, func() error {
		drives, viewings, err := s.day(ctx, v.ID, req.Date)
		if err != nil {
			return err
		}
		free, err := availability.ViewingFree(v.ID, req.Date, req.TimeSlot, drives, viewings)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if !free {
			return ErrSlotUnavailable
		}
		_, err = createWithID(ctx, s.viewings, ids.PrefixViewing, func(id string) error {
			vb.ID = id
			return s.viewings.Create(ctx, vb)
		})
		return err
	})
	if err != nil {
		return models.ViewingBooking{}, err
	}

	s.log.Info().Str("viewing_id", vb.ID).Str("vehicle_id", vb.VehicleID).Str("slot", vb.Date+" "+vb.TimeSlot).Msg("viewing requested")
	publish(ctx, s.pub, repository.TableViewingBookings, events.OpInsert, vb.ID, vb)
	return vb, nil
}

// SetTestDriveStatus moves a test drive to status. Moving a cancelled drive
// back to scheduled needs its slot to still be free.
func (s *BookingService) SetTestDriveStatus(ctx context.Context, id string, status models.TestDriveStatus) (models.TestDrive, error) {
	if !status.Valid() {
		return models.TestDrive{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	td, err := s.drives.Get(ctx, id)
	if err != nil {
		return models.TestDrive{}, err
	}
	if td.Status == status {
		return td, nil
	}

	reactivate := td.Status == models.TestDriveStatusCancelled
	td.Status = status
	update := func() error { return s.drives.Update(ctx, td) }
	if reactivate {
		err = s.withLock(ctx, td.VehicleID, td.Date, func() error {
			drives, viewings, err := s.day(ctx, td.VehicleID, td.Date)
			if err != nil {
				return err
			}
			free, err := availability.TestDriveFree(td.VehicleID, td.Date, td.Time, drives, viewings)
			if err != nil {
				return err
			}
			if !free {
				return ErrSlotUnavailable
			}
			return update()
		})
	} else {
		err = update()
	}
	if err != nil {
		return models.TestDrive{}, err
	}

	publish(ctx, s.pub, repository.TableTestDrives, events.OpUpdate, td.ID, td)
	return td, nil
}

// SetViewingStatus moves a viewing to status. A viewing that no longer holds
// its slot can only take it back while the slot is free.
func (s *BookingService) SetViewingStatus(ctx context.Context, id string, status models.ViewingStatus) (models.ViewingBooking, error) {
	if !status.Valid() {
		return models.ViewingBooking{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	vb, err := s.viewings.Get(ctx, id)
	if err != nil {
		return models.ViewingBooking{}, err
	}
	if vb.Status == status {
		return vb, nil
	}

	reclaim := !vb.Status.Holds() && status.Holds()
	vb.Status = status
	update := func() error { return s.viewings.Update(ctx, vb) }
	if reclaim {
		err = s.withLock(ctx, vb.VehicleID, vb.Date, func() error {
			drives, viewings, err := s.day(ctx, vb.VehicleID, vb.Date)
			if err != nil {
				return err
			}
			free, err := availability.ViewingFree(vb.VehicleID, vb.Date, vb.TimeSlot, drives, viewings)
			if err != nil {
				return err
			}
			if !free {
				return ErrSlotUnavailable
			}
			return update()
		})
	} else {
		err = update()
	}
	if err != nil {
		return models.ViewingBooking{}, err
	}

	s.log.Info().Str("viewing_id", vb.ID).Str("status", string(status)).Msg("viewing status changed")
	publish(ctx, s.pub, repository.TableViewingBookings, events.OpUpdate, vb.ID, vb)
	return vb, nil
}

// BookingFilter selects bookings by any combination of owner fields.
type BookingFilter struct {
	VehicleID string
	BuyerID   string
	AgentID   string
}

func (f BookingFilter) filter() repository.Filter {
	out := repository.Filter{}
	if f.VehicleID != "" {
		out["vehicleId"] = f.VehicleID
	}
	if f.BuyerID != "" {
		out["buyerId"] = f.BuyerID
	}
	if f.AgentID != "" {
		out["agentId"] = f.AgentID
	}
	return out
}

func (s *BookingService) TestDrives(ctx context.Context, f BookingFilter) ([]models.TestDrive, error) {
	return s.drives.List(ctx, f.filter())
}

func (s *BookingService) Viewings(ctx context.Context, f BookingFilter) ([]models.ViewingBooking, error) {
	return s.viewings.List(ctx, f.filter())
}

func (s *BookingService) TestDrive(ctx context.Context, id string) (models.TestDrive, error) {
	return s.drives.Get(ctx, id)
}

func (s *BookingService) Viewing(ctx context.Context, id string) (models.ViewingBooking, error) {
	return s.viewings.Get(ctx, id)
}

// ExpireStale marks pending viewings whose day has passed as expired and
// returns how many changed.
func (s *BookingService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.viewings.List(ctx, repository.Filter{"status": string(models.ViewingStatusPending)})
	if err != nil {
		return 0, fmt.Errorf("list pending viewings: %w", err)
	}
	today := now.UTC().Format(availability.DateLayout)

	expired := 0
	for _, vb := range pending {
		// dates are fixed width, so string order is date order
		if vb.Date >= today {
			continue
		}
		vb.Status = models.ViewingStatusExpired
		if err := s.viewings.Update(ctx, vb); err != nil {
			return expired, fmt.Errorf("expire viewing %s: %w", vb.ID, err)
		}
		publish(ctx, s.pub, repository.TableViewingBookings, events.OpUpdate, vb.ID, vb)
		expired++
	}
	if expired > 0 {
		s.log.Info().Int("count", expired).Msg("expired stale viewing requests")
	}
	return expired, nil
}
