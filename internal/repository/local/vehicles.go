package local

import (
	"context"
	"sort"

	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

type VehicleRepository struct {
	vehicles *Collection[models.Vehicle]
}

func NewVehicleRepository(s *Store) *VehicleRepository {
	return &VehicleRepository{vehicles: NewCollection[models.Vehicle](s, repository.TableVehicles)}
}

func (r *VehicleRepository) Create(ctx context.Context, v models.Vehicle) error {
	return r.vehicles.Create(ctx, v)
}

func (r *VehicleRepository) GetByID(ctx context.Context, id string) (models.Vehicle, error) {
	return r.vehicles.Get(ctx, id)
}

// Update keeps the stored view count.
func (r *VehicleRepository) Update(ctx context.Context, v models.Vehicle) error {
	_, err := r.vehicles.Mutate(ctx, v.ID, func(cur *models.Vehicle) error {
		views := cur.Views
		*cur = v
		cur.Views = views
		return nil
	})
	return err
}

func (r *VehicleRepository) Delete(ctx context.Context, id string) error {
	return r.vehicles.Delete(ctx, id)
}

func (r *VehicleRepository) List(ctx context.Context) ([]models.Vehicle, error) {
	all, err := r.vehicles.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].AddedDate.After(all[j].AddedDate) })
	return all, nil
}

func (r *VehicleRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	v, err := r.vehicles.Mutate(ctx, id, func(cur *models.Vehicle) error {
		cur.Views++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return v.Views, nil
}

func (r *VehicleRepository) IDs(ctx context.Context, prefix string) ([]string, error) {
	return r.vehicles.IDs(ctx, prefix)
}
