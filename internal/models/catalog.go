package models

import "time"

type Country struct {
	ID        string
	Name      string
	ISOCode2  string
	ISOCode3  *string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type City struct {
	ID           string
	Name         string
	CountryID    string
	Country      *Country
	HeroImageURL *string
	Location     *GeoPoint
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NearbyCity is a city row decorated with its distance from a query point.
type NearbyCity struct {
	City
	DistanceMeters float64
}

type Category struct {
	ID        string
	Name      string
	Slug      string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
