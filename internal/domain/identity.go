package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by repositories when the requested row does not exist.
var ErrNotFound = errors.New("not found")

type Role string

const (
	RoleFarmer   Role = "Farmer"
	RoleCustomer Role = "Customer"
	RoleAdmin    Role = "Admin"
)

// ParseRole accepts any casing of a known role.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "farmer":
		return RoleFarmer, true
	case "customer":
		return RoleCustomer, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

type Identity struct {
	ID           int64     `json:"userId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"type"`
	Phone        string    `json:"phNo,omitempty"`
	Location     string    `json:"location,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	RegisteredAt time.Time `json:"registerDate"`
}

// Coordinates returns the stored position, if both halves are present.
func (u *Identity) Coordinates() (Coordinates, bool) {
	if u == nil || u.Latitude == nil || u.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *u.Latitude, Lng: *u.Longitude}, true
}

type LoginOutcome string

const (
	LoginSuccess LoginOutcome = "SUCCESS"
	LoginFailed  LoginOutcome = "FAILED"
)

const (
	FailureUserNotFound    = "USER_NOT_FOUND"
	FailureInvalidPassword = "INVALID_PASSWORD"
	FailureLookupError     = "LOOKUP_ERROR"
)

type LoginAttempt struct {
	ID            int64        `json:"loginId"`
	IdentityID    *int64       `json:"userId,omitempty"`
	Email         string       `json:"email"`
	At            time.Time    `json:"loginDate"`
	IP            string       `json:"ipAddress"`
	UserAgent     string       `json:"userAgent"`
	Outcome       LoginOutcome `json:"loginStatus"`
	FailureReason *string      `json:"failureReason,omitempty"`
}
