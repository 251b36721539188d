package local

import (
	"context"
	"sort"
	"strings"

	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

type UserRepository struct {
	users *Collection[models.User]
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{users: NewCollection[models.User](s, repository.TableUsers)}
}

// Create rejects ids and emails already present. Emails compare
// case-insensitively.
func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	r.users.store.mu.Lock()
	defer r.users.store.mu.Unlock()

	all, err := r.users.load()
	if err != nil {
		return err
	}
	for _, u := range all {
		if u.ID == user.ID || strings.EqualFold(u.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	return r.users.save(append(all, user))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.users.Get(ctx, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	all, err := r.users.List(ctx, nil)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range all {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (r *UserRepository) Update(ctx context.Context, user models.User) error {
	return r.users.Update(ctx, user)
}

func (r *UserRepository) List(ctx context.Context, role models.UserRole) ([]models.User, error) {
	f := repository.Filter{}
	if role != "" {
		f["role"] = role
	}
	users, err := r.users.List(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (r *UserRepository) IDs(ctx context.Context, prefix string) ([]string, error) {
	return r.users.IDs(ctx, prefix)
}
