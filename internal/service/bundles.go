// Package service coordinates bundle metadata records with their blobs and
// answers the update-policy question: which bundle should a client be on.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cryptoticket/rn-version-admin/internal/models"
	"github.com/cryptoticket/rn-version-admin/internal/semver"
	"github.com/cryptoticket/rn-version-admin/internal/storage"
	"github.com/cryptoticket/rn-version-admin/internal/store"
)

// Bundles orchestrates the bundle lifecycle across the record store and the
// per-record blob backend.
type Bundles struct {
	store    *store.BundleStore
	backends map[string]storage.Backend
	log      *zap.Logger
}

func NewBundles(st *store.BundleStore, backends map[string]storage.Backend, log *zap.Logger) *Bundles {
	return &Bundles{store: st, backends: backends, log: log}
}

func (b *Bundles) backend(kind string) (storage.Backend, error) {
	be, ok := b.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown storage %q", ErrValidation, kind)
	}
	return be, nil
}

// CreateInput carries the parsed multipart upload.
type CreateInput struct {
	Platform         string
	Storage          string
	Version          string
	IsUpdateRequired bool
	Desc             *string
	File             io.Reader
}

// Create validates the upload, stores the blob, then persists the record.
// Validation happens before any byte is written. If the record insert fails
// after a successful upload the blob is removed again on a best-effort
// basis.
func (b *Bundles) Create(ctx context.Context, in CreateInput) (*models.Bundle, error) {
	if !models.ValidPlatform(in.Platform) {
		return nil, fmt.Errorf("%w: platform must be android or ios", ErrValidation)
	}
	if !models.ValidStorage(in.Storage) {
		return nil, fmt.Errorf("%w: storage must be file or aws_s3", ErrValidation)
	}
	if !semver.IsValid(in.Version) {
		return nil, fmt.Errorf("%w: %s is not in a semver format", ErrValidation, in.Version)
	}
	if semver.IsWildcard(in.Version) {
		return nil, fmt.Errorf("%w: wildcard versions cannot be uploaded", ErrValidation)
	}
	if in.File == nil {
		return nil, fmt.Errorf("%w: bundle file is required", ErrValidation)
	}
	backend, err := b.backend(in.Storage)
	if err != nil {
		return nil, err
	}

	if _, err := b.store.FindByPlatformVersion(ctx, in.Platform, in.Version); err == nil {
		return nil, fmt.Errorf("%w: bundle is already uploaded for %s platform and app version %s",
			store.ErrDuplicate, in.Platform, in.Version)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	url, err := backend.Put(ctx, in.Platform, in.Version, in.File)
	if err != nil {
		return nil, fmt.Errorf("store bundle blob: %w", err)
	}

	bundle := &models.Bundle{
		Platform:         in.Platform,
		Storage:          in.Storage,
		Version:          in.Version,
		IsUpdateRequired: in.IsUpdateRequired,
		URL:              url,
		Desc:             in.Desc,
	}
	if err := b.store.Create(ctx, bundle); err != nil {
		// roll back the blob so committed bytes do not outlive the record
		if delErr := backend.Delete(ctx, in.Platform, in.Version); delErr != nil {
			b.log.Error("orphaned bundle blob after failed record insert",
				zap.String("platform", in.Platform),
				zap.String("version", in.Version),
				zap.Error(delErr))
		}
		return nil, err
	}
	return bundle, nil
}

// UpdateInput carries the PATCH body.
type UpdateInput struct {
	IsUpdateRequired bool
	ApplyFromVersion *string
	Desc             *string
}

// Update mutates the forced-update flag, range, and description. Enabling
// the flag clears it on all sibling bundles of the platform inside the same
// transaction, so at most one forced bundle per platform is ever visible.
func (b *Bundles) Update(ctx context.Context, id uint, in UpdateInput) (*models.Bundle, error) {
	bundle, err := b.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ApplyFromVersion != nil && !semver.IsValid(*in.ApplyFromVersion) {
		return nil, fmt.Errorf("%w: %s is not in a semver format", ErrValidation, *in.ApplyFromVersion)
	}
	if in.IsUpdateRequired {
		if in.ApplyFromVersion == nil {
			return nil, fmt.Errorf("%w: apply_from_version is required", ErrValidation)
		}
		applyFrom := *in.ApplyFromVersion
		if !semver.LessThan(applyFrom, bundle.Version) {
			return nil, fmt.Errorf("%w: apply from version %s should be less than existing bundle version %s",
				ErrInvalidRange, applyFrom, bundle.Version)
		}
	}

	bundle.IsUpdateRequired = in.IsUpdateRequired
	if in.ApplyFromVersion != nil {
		bundle.ApplyFromVersion = in.ApplyFromVersion
	}
	if in.Desc != nil {
		bundle.Desc = in.Desc
	}

	err = b.store.Transaction(ctx, func(tx *store.BundleStore) error {
		if in.IsUpdateRequired {
			if err := tx.ClearForcedUpdate(ctx, bundle.Platform, bundle.ID); err != nil {
				return err
			}
		}
		return tx.Save(ctx, bundle)
	})
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

// Delete removes the blob first and only then the record. A failed blob
// delete keeps the record, which is safer than a record pointing nowhere.
func (b *Bundles) Delete(ctx context.Context, id uint) error {
	bundle, err := b.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	backend, err := b.backend(bundle.Storage)
	if err != nil {
		return err
	}
	if err := backend.Delete(ctx, bundle.Platform, bundle.Version); err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return fmt.Errorf("%w: bundle blob is missing", store.ErrNotFound)
		}
		return fmt.Errorf("delete bundle blob: %w", err)
	}
	return b.store.DeleteByID(ctx, id)
}

// Latest resolves the bundle a client of the platform should be on: a
// forced-update bundle always wins, otherwise the highest version. Returns
// nil without error when the platform has no bundles.
func (b *Bundles) Latest(ctx context.Context, platform string) (*models.Bundle, error) {
	if !models.ValidPlatform(platform) {
		return nil, fmt.Errorf("%w: platform must be android or ios", ErrValidation)
	}
	forced, err := b.store.FindForced(ctx, platform)
	if err != nil {
		return nil, err
	}
	if forced != nil {
		return forced, nil
	}
	return b.store.FindLatest(ctx, platform)
}

// Page describes one page of a listing for pagination headers.
type Page struct {
	Total    int64
	Number   int
	Size     int
	LastPage int
}

// List returns one page of bundles ordered by version descending.
func (b *Bundles) List(ctx context.Context, page, size int) ([]models.Bundle, Page, error) {
	bundles, total, err := b.store.List(ctx, page, size)
	if err != nil {
		return nil, Page{}, err
	}
	return bundles, Page{
		Total:    total,
		Number:   page,
		Size:     size,
		LastPage: store.LastPage(total, size),
	}, nil
}
