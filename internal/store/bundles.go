package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cryptoticket/rn-version-admin/internal/models"
	"github.com/cryptoticket/rn-version-admin/internal/semver"
)

// BundleStore persists bundle metadata. Version ordering is backed by the
// indexed sort_key column so "latest" and paging stay in SQL.
type BundleStore struct {
	db *gorm.DB
}

func NewBundleStore(db *gorm.DB) *BundleStore {
	return &BundleStore{db: db}
}

// WithTx returns a store bound to the given transaction handle.
func (s *BundleStore) WithTx(tx *gorm.DB) *BundleStore {
	return &BundleStore{db: tx}
}

// Transaction runs fn inside a single database transaction.
func (s *BundleStore) Transaction(ctx context.Context, fn func(tx *BundleStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.WithTx(tx))
	})
}

// Create inserts a new bundle record. The (platform, version) pair is
// checked first for a friendly error; the composite unique index backs the
// check against concurrent writers.
func (s *BundleStore) Create(ctx context.Context, b *models.Bundle) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Bundle{}).
		Where("platform = ? AND version = ?", b.Platform, b.Version).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if count > 0 {
		return ErrDuplicate
	}
	b.SortKey = semver.SortKey(b.Version)
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *BundleStore) FindByID(ctx context.Context, id uint) (*models.Bundle, error) {
	var b models.Bundle
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *BundleStore) FindByPlatformVersion(ctx context.Context, platform, version string) (*models.Bundle, error) {
	var b models.Bundle
	err := s.db.WithContext(ctx).
		Where("platform = ? AND version = ?", platform, version).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// List returns one zero-indexed page of bundles ordered by version
// descending, plus the total record count.
func (s *BundleStore) List(ctx context.Context, page, size int) ([]models.Bundle, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Bundle{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var bundles []models.Bundle
	err := s.db.WithContext(ctx).
		Order("sort_key desc").
		Offset(page * size).
		Limit(size).
		Find(&bundles).Error
	if err != nil {
		return nil, 0, err
	}
	return bundles, total, nil
}

// Save persists all fields of an existing record.
func (s *BundleStore) Save(ctx context.Context, b *models.Bundle) error {
	return s.db.WithContext(ctx).Save(b).Error
}

func (s *BundleStore) DeleteByID(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Bundle{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearForcedUpdate drops the forced-update flag on every bundle of the
// platform except the given record.
func (s *BundleStore) ClearForcedUpdate(ctx context.Context, platform string, exceptID uint) error {
	return s.db.WithContext(ctx).Model(&models.Bundle{}).
		Where("platform = ? AND id <> ?", platform, exceptID).
		Update("is_update_required", false).Error
}

// FindForced returns the bundle flagged for forced update on the platform,
// or nil when there is none.
func (s *BundleStore) FindForced(ctx context.Context, platform string) (*models.Bundle, error) {
	var b models.Bundle
	err := s.db.WithContext(ctx).
		Where("platform = ? AND is_update_required = ?", platform, true).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindLatest returns the bundle with the highest version on the platform,
// or nil when the platform has no bundles.
func (s *BundleStore) FindLatest(ctx context.Context, platform string) (*models.Bundle, error) {
	var b models.Bundle
	err := s.db.WithContext(ctx).
		Where("platform = ?", platform).
		Order("sort_key desc").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LastPage returns the zero-based index of the last page, or -1 when there
// are no records at all.
func LastPage(total int64, size int) int {
	if total == 0 {
		return -1
	}
	return int((total+int64(size)-1)/int64(size)) - 1
}
