// Package availability computes the free test-drive and viewing slots of a
// vehicle on a given day. A viewing occupies its whole hour, so the two
// booking kinds exclude each other per hour.
package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ldotspots/zuco-motors/internal/models"
)

const (
	DateLayout = "2006-01-02"

	openHour         = 9
	lastTestDrive    = 17 // 17:30 is the final half-hour start
	lastViewingStart = 16
)

var (
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
	ErrInvalidSlot = errors.New("not a bookable slot")
)

func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func slot(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

func hourOf(s string) string {
	h, _, _ := strings.Cut(s, ":")
	return h
}

type day struct {
	drives   map[string]bool // exact HH:MM of live test drives
	driveHrs map[string]bool // hours touched by a live test drive
	viewHrs  map[string]bool // hours held by a pending or approved viewing
}

func collect(vehicleID, date string, drives []models.TestDrive, viewings []models.ViewingBooking) day {
	d := day{drives: map[string]bool{}, driveHrs: map[string]bool{}, viewHrs: map[string]bool{}}
	for _, td := range drives {
		if td.VehicleID != vehicleID || td.Date != date || td.Status == models.TestDriveStatusCancelled {
			continue
		}
		d.drives[td.Time] = true
		d.driveHrs[hourOf(td.Time)] = true
	}
	for _, vb := range viewings {
		if vb.VehicleID != vehicleID || vb.Date != date || !vb.Status.Holds() {
			continue
		}
		d.viewHrs[hourOf(vb.TimeSlot)] = true
	}
	return d
}

// TestDriveSlots lists the free half-hour starts from 09:00 to 17:30.
// Bookings for other vehicles or dates are ignored.
func TestDriveSlots(vehicleID, date string, drives []models.TestDrive, viewings []models.ViewingBooking) []string {
	d := collect(vehicleID, date, drives, viewings)

	free := make([]string, 0, 2*(lastTestDrive-openHour+1))
	for h := openHour; h <= lastTestDrive; h++ {
		for _, m := range []int{0, 30} {
			s := slot(h, m)
			if d.drives[s] || d.viewHrs[hourOf(s)] {
				continue
			}
			free = append(free, s)
		}
	}
	return free
}

// ViewingSlots lists the free hourly starts from 09:00 to 16:00.
func ViewingSlots(vehicleID, date string, drives []models.TestDrive, viewings []models.ViewingBooking) []string {
	d := collect(vehicleID, date, drives, viewings)

	free := make([]string, 0, lastViewingStart-openHour+1)
	for h := openHour; h <= lastViewingStart; h++ {
		s := slot(h, 0)
		if d.viewHrs[hourOf(s)] || d.driveHrs[hourOf(s)] {
			continue
		}
		free = append(free, s)
	}
	return free
}

func contains(slots []string, s string) bool {
	for _, v := range slots {
		if v == s {
			return true
		}
	}
	return false
}

// TestDriveFree reports whether a test drive may be booked at s. It returns
// ErrInvalidSlot when s is not one of the half-hour starts at all.
func TestDriveFree(vehicleID, date, s string, drives []models.TestDrive, viewings []models.ViewingBooking) (bool, error) {
	if !contains(TestDriveSlots("", "", nil, nil), s) {
		return false, ErrInvalidSlot
	}
	return contains(TestDriveSlots(vehicleID, date, drives, viewings), s), nil
}

func ViewingFree(vehicleID, date, s string, drives []models.TestDrive, viewings []models.ViewingBooking) (bool, error) {
	if !contains(ViewingSlots("", "", nil, nil), s) {
		return false, ErrInvalidSlot
	}
	return contains(ViewingSlots(vehicleID, date, drives, viewings), s), nil
}
