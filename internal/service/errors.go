package service

import (
	"errors"

	"github.com/ldotspots/zuco-motors/internal/repository"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrInvalidCredential = errors.New("invalid credential")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrWeakPassword      = errors.New("password does not meet strength rules")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrSlotUnavailable   = errors.New("slot no longer available")
	ErrAlreadyAllocated  = errors.New("vehicle already allocated to agent")
	ErrNotAllocated      = errors.New("vehicle not allocated to agent")
	ErrVehicleSold       = errors.New("vehicle already sold")
	ErrAlreadyApplied    = errors.New("application already submitted")
	ErrTooManyCompared   = errors.New("at most 3 vehicles can be compared")
	ErrNoImageStore      = errors.New("image storage not configured")
)
