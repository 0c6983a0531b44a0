package models

import "time"

type Role string

const (
	RoleGuest           Role = "guest"
	RoleTourist         Role = "tourist"
	RoleVerifiedTourist Role = "verified_tourist"
	RolePartner         Role = "partner"
	RolePartnerManager  Role = "partner_manager"
	RoleCityModerator   Role = "city_moderator"
	RoleCountryModerator Role = "country_moderator"
	RolePlatformAdmin   Role = "platform_admin"
	RoleSuperAdmin      Role = "super_admin"
)

// ValidRole reports whether r is one of the storable roles. Guest is the
// implied role of unauthenticated callers and is never persisted.
func ValidRole(r Role) bool {
	switch r {
	case RoleTourist, RoleVerifiedTourist, RolePartner, RolePartnerManager,
		RoleCityModerator, RoleCountryModerator, RolePlatformAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
)

type Account struct {
	ID                 string
	Email              *string
	Phone              *string
	PasswordHash       []byte
	RefreshTokenHash   []byte
	Role               Role
	VerificationStatus VerificationStatus
	IsActive           bool
	IsSuspended        bool
	SuspendedUntil     *time.Time
	SelectedCityID     *string
	PartnerID          *string
	DeletedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SuspendedNow applies the suspension boundary rule: a suspension with no
// expiry is indefinite, one with a past expiry no longer counts.
func (a Account) SuspendedNow(now time.Time) bool {
	if !a.IsSuspended {
		return false
	}
	if a.SuspendedUntil == nil {
		return true
	}
	return a.SuspendedUntil.After(now)
}

// AuthStatus is the slice of an account that authorization re-derives on
// every request.
type AuthStatus struct {
	ID             string
	Role           Role
	IsActive       bool
	IsSuspended    bool
	SuspendedUntil *time.Time
	DeletedAt      *time.Time
}

func (s AuthStatus) SuspendedNow(now time.Time) bool {
	if !s.IsSuspended {
		return false
	}
	if s.SuspendedUntil == nil {
		return true
	}
	return s.SuspendedUntil.After(now)
}

type Partner struct {
	ID        string
	Name      string
	OwnerID   string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
