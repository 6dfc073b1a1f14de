package service

import (
	"fmt"

	"healthguard/internal/config"
	"healthguard/internal/session"
)

// LoadSession builds the session from the signed token when a secret is
// configured, otherwise from the plain SESSION_* settings.
func LoadSession(cfg *config.Config) (*session.Session, error) {
	if cfg.Session.Secret != "" {
		return session.FromToken(cfg.Session.Token, cfg.Session.Secret)
	}
	if cfg.Session.PatientID == 0 {
		return nil, fmt.Errorf("SESSION_PATIENT_ID is required without SESSION_SECRET")
	}
	return session.New(cfg.Session.PatientID, cfg.Session.Role, cfg.Session.SelfManagement, cfg.Session.Token)
}
