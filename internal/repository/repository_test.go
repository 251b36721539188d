package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestFilterMatches(t *testing.T) {
	doc := map[string]any{"vehicleId": "VEH001", "termMonths": float64(60), "status": "pending"}

	assert.True(t, Filter{}.Matches(doc))
	assert.True(t, Filter{"vehicleId": "VEH001"}.Matches(doc))
	assert.True(t, Filter{"termMonths": 60}.Matches(doc))
	assert.False(t, Filter{"vehicleId": "VEH002"}.Matches(doc))
	assert.False(t, Filter{"agentId": "AGT001"}.Matches(doc))
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})), ErrConflict)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}
