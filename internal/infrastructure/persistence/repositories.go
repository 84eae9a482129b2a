package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/domain/shared"
	"github.com/nicepick/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// ReleaseRepository performs the INTL-region release mutations
type ReleaseRepository struct {
	db *gorm.DB
}

// NewReleaseRepository creates a new ReleaseRepository
func NewReleaseRepository(db *gorm.DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

// Insert stores a new release row
func (r *ReleaseRepository) Insert(ctx context.Context, row admin.ReleaseRow) error {
	createdAt := time.Now().UTC()
	if row.CreatedAt != nil {
		createdAt = *row.CreatedAt
	}
	model := models.ReleaseModel{
		ID:        row.ID,
		Version:   row.Version,
		Platform:  row.Platform,
		Channel:   row.Channel,
		Active:    row.Active,
		FileKey:   row.FileKey,
		Notes:     row.Notes,
		CreatedAt: createdAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID returns one release row
func (r *ReleaseRepository) FindByID(ctx context.Context, id string) (*admin.ReleaseRow, error) {
	var model models.ReleaseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	row := model.ToRow()
	return &row, nil
}

// SetActive marks one release active and deactivates its siblings on
// the same platform and channel, atomically.
func (r *ReleaseRepository) SetActive(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.ReleaseModel
		if err := tx.First(&target, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if err := tx.Model(&models.ReleaseModel{}).
			Where("platform = ? AND channel = ? AND id <> ?", target.Platform, target.Channel, id).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.ReleaseModel{}).
			Where("id = ?", id).
			Update("active", true).Error
	})
}

// Delete removes a release row
func (r *ReleaseRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.ReleaseModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UserRepository performs the INTL-region user mutations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpdateProfile patches tier and/or status on one user row
func (r *UserRepository) UpdateProfile(ctx context.Context, id, tier, status string) error {
	fields := map[string]any{}
	if tier != "" {
		fields["tier"] = tier
	}
	if status != "" {
		fields["status"] = status
	}
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
