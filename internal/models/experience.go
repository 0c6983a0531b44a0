package models

import "time"

type ExperienceStatus string

const (
	ExperienceStatusDraft         ExperienceStatus = "draft"
	ExperienceStatusPendingReview ExperienceStatus = "pending_review"
	ExperienceStatusPublished     ExperienceStatus = "published"
	ExperienceStatusUnpublished   ExperienceStatus = "unpublished"
)

func ValidExperienceStatus(s ExperienceStatus) bool {
	switch s {
	case ExperienceStatusDraft, ExperienceStatusPendingReview,
		ExperienceStatusPublished, ExperienceStatusUnpublished:
		return true
	}
	return false
}

type GeoPoint struct {
	Lat float64
	Lng float64
}

type Experience struct {
	ID              string
	Title           string
	Description     *string
	CityID          string
	CategoryID      *string
	PartnerID       *string
	PriceFromCents  *int64
	Currency        *string
	RatingAvg       float64
	RatingCount     int
	Status          ExperienceStatus
	IsPublished     bool
	IsFeatured      bool
	RejectionReason *string
	PublishedAt     *time.Time
	Location        *GeoPoint
	Media           []ExperienceMedia
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ExperienceMedia struct {
	ID           string
	ExperienceID string
	URL          string
	SortOrder    int
}
