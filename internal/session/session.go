// Package session carries the logged-in identity through the services.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnknownRole  = errors.New("unknown role")
	ErrInvalidToken = errors.New("invalid session token")
)

// Role is the closed set of account roles.
type Role int

const (
	RoleSenior Role = iota + 1
	RoleChronic
	RoleSupport
	RoleCaregiver
)

// ParseRole maps a backend role name. CONTROL and MENTAL are legacy aliases.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SENIOR":
		return RoleSenior, nil
	case "CHRONIC", "CRONICO", "CONTROL":
		return RoleChronic, nil
	case "SUPPORT", "APOYO", "MENTAL":
		return RoleSupport, nil
	case "CAREGIVER", "CUIDADOR":
		return RoleCaregiver, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) String() string {
	switch r {
	case RoleSenior:
		return "SENIOR"
	case RoleChronic:
		return "CHRONIC"
	case RoleSupport:
		return "SUPPORT"
	case RoleCaregiver:
		return "CAREGIVER"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Session is created once at login and passed to the components that need it.
type Session struct {
	PatientID      int64
	Role           Role
	SelfManagement bool
	Token          string
}

// New validates the role name and builds a session.
func New(patientID int64, role string, selfManagement bool, token string) (*Session, error) {
	r, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	return &Session{PatientID: patientID, Role: r, SelfManagement: selfManagement, Token: token}, nil
}

// SchedulesReminders reports whether dose alarms are armed on this device.
// Caregivers watch patients; they do not take doses.
func (s *Session) SchedulesReminders() bool {
	switch s.Role {
	case RoleSenior, RoleChronic, RoleSupport:
		return true
	case RoleCaregiver:
		return false
	}
	return false
}

// RegisterMode reports whether scans register new medications instead of
// verifying intakes.
func (s *Session) RegisterMode() bool {
	switch s.Role {
	case RoleCaregiver:
		return true
	case RoleSenior:
		return s.SelfManagement
	case RoleChronic, RoleSupport:
		return false
	}
	return false
}

// Claims is the payload of the backend-issued session token.
type Claims struct {
	jwt.RegisteredClaims
	PatientID      int64  `json:"patient_id"`
	Role           string `json:"role"`
	SelfManagement bool   `json:"self_management"`
}

// FromToken verifies an HS256 token and builds the session from its claims.
func FromToken(token, secret string) (*Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.PatientID == 0 {
		return nil, fmt.Errorf("%w: missing patient_id", ErrInvalidToken)
	}
	return New(claims.PatientID, claims.Role, claims.SelfManagement, token)
}
