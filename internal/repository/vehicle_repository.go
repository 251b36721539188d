package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ldotspots/zuco-motors/internal/models"
)

type VehicleRepository struct {
	pool *pgxpool.Pool
}

func NewVehicleRepository(pool *pgxpool.Pool) *VehicleRepository {
	return &VehicleRepository{pool: pool}
}

const vehicleColumns = `id, vin, stock_number, year, make, model, trim, body_style, condition,
	exterior_color, interior_color, mileage, specs, pricing, status, assigned_agent_id,
	images, features, description, views, added_date, updated_at`

func scanVehicle(row pgx.Row) (models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(
		&v.ID,
		&v.VIN,
		&v.StockNumber,
		&v.Year,
		&v.Make,
		&v.Model,
		&v.Trim,
		&v.BodyStyle,
		&v.Condition,
		&v.ExteriorColor,
		&v.InteriorColor,
		&v.Mileage,
		&v.Specs,
		&v.Pricing,
		&v.Status,
		&v.AssignedAgentID,
		&v.Images,
		&v.Features,
		&v.Description,
		&v.Views,
		&v.AddedDate,
		&v.UpdatedAt,
	)
	return v, mapError(err)
}

func vehicleArgs(v models.Vehicle) []any {
	return []any{
		v.ID,
		v.VIN,
		v.StockNumber,
		v.Year,
		v.Make,
		v.Model,
		v.Trim,
		v.BodyStyle,
		v.Condition,
		v.ExteriorColor,
		v.InteriorColor,
		v.Mileage,
		v.Specs,
		v.Pricing,
		v.Status,
		v.AssignedAgentID,
		nonNil(v.Images),
		nonNil(v.Features),
		v.Description,
		v.Views,
		v.AddedDate,
		v.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *VehicleRepository) Create(ctx context.Context, v models.Vehicle) error {
	const query = `
		INSERT INTO vehicles (` + vehicleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err := r.pool.Exec(ctx, query, vehicleArgs(v)...)
	return mapError(err)
}

func (r *VehicleRepository) GetByID(ctx context.Context, id string) (models.Vehicle, error) {
	const query = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	return scanVehicle(r.pool.QueryRow(ctx, query, id))
}

// Update rewrites every column except views, which only IncrementViews
// touches.
func (r *VehicleRepository) Update(ctx context.Context, v models.Vehicle) error {
	const query = `
		UPDATE vehicles SET
			vin = $2, stock_number = $3, year = $4, make = $5, model = $6, trim = $7,
			body_style = $8, condition = $9, exterior_color = $10, interior_color = $11,
			mileage = $12, specs = $13, pricing = $14, status = $15, assigned_agent_id = $16,
			images = $17, features = $18, description = $19, updated_at = $20
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		v.ID,
		v.VIN,
		v.StockNumber,
		v.Year,
		v.Make,
		v.Model,
		v.Trim,
		v.BodyStyle,
		v.Condition,
		v.ExteriorColor,
		v.InteriorColor,
		v.Mileage,
		v.Specs,
		v.Pricing,
		v.Status,
		v.AssignedAgentID,
		nonNil(v.Images),
		nonNil(v.Features),
		v.Description,
		v.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VehicleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the whole inventory, most recently added first.
func (r *VehicleRepository) List(ctx context.Context) ([]models.Vehicle, error) {
	const query = `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY added_date DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *VehicleRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	const query = `UPDATE vehicles SET views = views + 1 WHERE id = $1 RETURNING views`
	var views int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&views); err != nil {
		return 0, mapError(err)
	}
	return views, nil
}

func (r *VehicleRepository) IDs(ctx context.Context, prefix string) ([]string, error) {
	return listIDs(ctx, r.pool, "vehicles", prefix)
}
