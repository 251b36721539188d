package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

func TestCreateVehicleDerivesPricing(t *testing.T) {
	f := newFixture(t)
	changes, cancel, err := f.hub.Subscribe(f.ctx, repository.TableVehicles)
	require.NoError(t, err)
	defer cancel()

	v, err := f.catalog.Create(f.ctx, models.Vehicle{
		Make:  "Toyota",
		Model: "Camry",
		Year:  2024,
		Pricing: models.Pricing{
			InvoiceCost:   decimal.NewFromInt(30000),
			CurrentMarkup: decimal.RequireFromString("0.08"),
			Holdback:      decimal.NewFromInt(600),
			Incentives:    decimal.NewFromInt(400),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "VEH001", v.ID)
	assert.Equal(t, models.VehicleStatusAvailable, v.Status)
	assert.Equal(t, "32400", v.Pricing.SalePrice.String())
	assert.Equal(t, "29000", v.Pricing.NetCost.String())
	assert.Equal(t, []string{}, v.Images)

	select {
	case c := <-changes:
		assert.Equal(t, events.OpInsert, c.Op)
		assert.Equal(t, "VEH001", c.ID)
	case <-time.After(time.Second):
		t.Fatal("no change published")
	}

	second := f.addVehicle(t, "Mazda", "CX-5", 2023, "28000", "0.1")
	assert.Equal(t, "VEH002", second.ID)
}

func TestCreateVehicleRejectsMarkupOutsideBounds(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.Create(f.ctx, models.Vehicle{
		Make:  "Toyota",
		Model: "Hilux",
		Year:  2024,
		Pricing: models.Pricing{
			InvoiceCost:   decimal.NewFromInt(40000),
			MinMarkup:     decimal.RequireFromString("0.05"),
			MaxMarkup:     decimal.RequireFromString("0.12"),
			CurrentMarkup: decimal.RequireFromString("0.2"),
		},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateKeepsViewsAndRederivesPricing(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, "Toyota", "Camry", 2024, "30000", "0.08")
	_, err := f.catalog.TrackView(f.ctx, v.ID)
	require.NoError(t, err)

	v.Trim = "SX"
	v.Views = 0
	v.Pricing.CurrentMarkup = decimal.RequireFromString("0.1")
	updated, err := f.catalog.Update(f.ctx, v.ID, v)
	require.NoError(t, err)

	assert.Equal(t, "SX", updated.Trim)
	assert.Equal(t, 1, updated.Views)
	assert.Equal(t, "33000", updated.Pricing.SalePrice.String())
}

func TestUpdatePricingReturnsBreakdown(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, "Toyota", "Camry", 2024, "30000", "0.08")

	p := v.Pricing
	p.Holdback = decimal.NewFromInt(1000)
	_, b, err := f.catalog.UpdatePricing(f.ctx, v.ID, p)
	require.NoError(t, err)
	assert.Equal(t, "29000", b.NetCost.String())
	assert.Equal(t, "3400", b.GrossProfit.String())
	assert.Equal(t, "10.49", b.MarginPercent.String())
}

func TestSearchFiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	f.addVehicle(t, "Toyota", "Camry", 2022, "30000", "0.08")
	f.clock.Advance(time.Minute)
	f.addVehicle(t, "Toyota", "Corolla", 2024, "22000", "0.08")
	f.clock.Advance(time.Minute)
	f.addVehicle(t, "Mazda", "CX-5", 2023, "28000", "0.1")

	all, err := f.catalog.Search(f.ctx, VehicleQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "VEH003", all[0].ID)

	toyotas, err := f.catalog.Search(f.ctx, VehicleQuery{Make: "toyota", Sort: SortPrice})
	require.NoError(t, err)
	require.Len(t, toyotas, 2)
	assert.Equal(t, "Corolla", toyotas[0].Model)

	text, err := f.catalog.Search(f.ctx, VehicleQuery{Text: "2023 mazda"})
	require.NoError(t, err)
	require.Len(t, text, 1)
	assert.Equal(t, "CX-5", text[0].Model)

	cheap, err := f.catalog.Search(f.ctx, VehicleQuery{PriceMax: decimal.NewFromInt(31000), YearMin: 2023, Sort: SortYear, Desc: true})
	require.NoError(t, err)
	require.Len(t, cheap, 2)
	assert.Equal(t, 2024, cheap[0].Year)
}

func TestAgentViewHidesInvoiceCost(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, "Toyota", "Camry", 2024, "30000", "0.08")

	av, err := f.catalog.AgentVehicle(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "32136", av.Pricing.AgentCostPrice.String())
	assert.Equal(t, "264", av.Pricing.ProfitRoom.String())

	raw, err := json.Marshal(av)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "invoiceCost")
	assert.Contains(t, string(raw), `"agentCostPrice"`)
	assert.Contains(t, string(raw), `"make":"Toyota"`)
}

func TestToggleFavorite(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "buyer@example.co.nz", models.UserRoleBuyer)
	v := f.addVehicle(t, "Toyota", "Camry", 2024, "30000", "0.08")

	on, err := f.catalog.ToggleFavorite(f.ctx, u.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, on)

	favs, err := f.catalog.Favorites(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, favs, 1)

	require.NoError(t, f.catalog.Delete(f.ctx, v.ID))
	favs, err = f.catalog.Favorites(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, favs)

	_, err = f.catalog.ToggleFavorite(f.ctx, u.ID, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompareLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.addVehicle(t, "Toyota", "Camry", 2024, "30000", "0.08")
	}

	got, err := f.catalog.Compare(f.ctx, []string{"VEH001", "VEH003"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.catalog.Compare(f.ctx, []string{"VEH001", "VEH002", "VEH003", "VEH004"})
	assert.ErrorIs(t, err, ErrTooManyCompared)
}

func TestAssignAgentRequiresSalesAgent(t *testing.T) {
	f := newFixture(t)
	buyer := f.register(t, "buyer@example.co.nz", models.UserRoleBuyer)
	agent := f.register(t, "agent@example.co.nz", models.UserRoleSalesAgent)
	v := f.addVehicle(t, "Toyota", "Camry", 2024, "30000", "0.08")

	_, err := f.catalog.AssignAgent(f.ctx, v.ID, buyer.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	v, err = f.catalog.AssignAgent(f.ctx, v.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "AGT001", v.AssignedAgentID)
}

type memImages struct {
	keys map[string][]byte
}

func (m *memImages) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.keys[key] = b
	return "http://images.test/" + key, nil
}

func (m *memImages) Remove(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func TestAddImage(t *testing.T) {
	f := newFixture(t)
	images := &memImages{keys: map[string][]byte{}}
	f.catalog.images = images
	v := f.addVehicle(t, "Toyota", "Camry", 2024, "30000", "0.08")

	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{1}, 600)...)
	updated, err := f.catalog.AddImage(f.ctx, v.ID, bytes.NewReader(png), int64(len(png)))
	require.NoError(t, err)
	require.Len(t, updated.Images, 1)
	assert.Contains(t, updated.Images[0], "vehicles/VEH001/")
	assert.Contains(t, updated.Images[0], ".png")

	for _, b := range images.keys {
		assert.Equal(t, png, b)
	}

	_, err = f.catalog.AddImage(f.ctx, v.ID, bytes.NewReader([]byte("plain text")), 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
