package models

import "time"

// Bundle platforms
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Bundle storage backends
const (
	StorageFile  = "file"
	StorageAwsS3 = "aws_s3"
)

// Bundle represents one uploaded OTA bundle for a platform/version pair.
// Platform and Storage are immutable after creation: moving a record between
// backends would orphan the stored blob.
type Bundle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Platform string `gorm:"size:16;not null;uniqueIndex:uniq_platform_version" json:"platform"`
	Storage  string `gorm:"size:16;not null" json:"storage"`
	Version  string `gorm:"size:32;not null;uniqueIndex:uniq_platform_version" json:"version"`

	// SortKey is derived from Version (semver.SortKey) so the store can
	// order records by version without parsing them.
	SortKey string `gorm:"size:64;not null;index" json:"-"`

	// At most one bundle per platform may have IsUpdateRequired set.
	IsUpdateRequired bool    `gorm:"not null;default:false" json:"is_update_required"`
	ApplyFromVersion *string `gorm:"size:32" json:"apply_from_version,omitempty"`

	URL  string  `gorm:"size:512;not null" json:"url"`
	Desc *string `gorm:"type:text" json:"desc,omitempty"`
}

func ValidPlatform(p string) bool {
	return p == PlatformAndroid || p == PlatformIOS
}

func ValidStorage(s string) bool {
	return s == StorageFile || s == StorageAwsS3
}
