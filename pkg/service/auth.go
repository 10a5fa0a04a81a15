package service

import (
	"fmt"
	"time"

	"github.com/zfogg/vaultfeed/pkg/credentials"
	"github.com/zfogg/vaultfeed/pkg/logger"
)

// LoginRequest is a login supplied by flags. Blank fields are prompted for.
type LoginRequest struct {
	UserID    string
	Username  string
	Token     string
	ExpiresAt time.Time
}

// AuthService stores and inspects the CLI's bearer token
type AuthService struct {
	env Env
}

// NewAuthService creates a new auth service
func NewAuthService(env Env) *AuthService {
	return &AuthService{env: env}
}

// Login saves a bearer token. Tokens are issued elsewhere; the CLI only
// stores them.
func (as *AuthService) Login(req LoginRequest) error {
	logger.Debug("Logging in", "user", req.UserID)

	existing, err := credentials.LoadFrom(as.env.CredentialsPath)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if existing.IsValid() && req.Token == "" {
		as.env.Printer.Warning("Already logged in as %s", existing.UserID)
		ok, err := as.env.Prompter.PromptConfirm("Replace the stored login?")
		if err != nil || !ok {
			return err
		}
	}

	if req.UserID == "" {
		if req.UserID, err = as.env.Prompter.PromptString("User ID: "); err != nil {
			return fmt.Errorf("failed to read user id: %w", err)
		}
	}
	if req.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if req.Token == "" {
		as.env.Printer.Info("Paste an access token (from 'vaultfeed stub token %s' when developing locally)", req.UserID)
		if req.Token, err = as.env.Prompter.PromptPassword("Access token: "); err != nil {
			return fmt.Errorf("failed to read access token: %w", err)
		}
	}
	if req.Token == "" {
		return fmt.Errorf("access token is required")
	}
	if req.Username == "" {
		req.Username = req.UserID
	}

	creds := &credentials.Credentials{
		AccessToken: req.Token,
		ExpiresAt:   req.ExpiresAt,
		UserID:      req.UserID,
		Username:    req.Username,
	}
	if err := credentials.SaveTo(as.env.CredentialsPath, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	as.env.Printer.Success("✓ Logged in as %s", creds.Username)
	return nil
}

// Logout forgets the stored token
func (as *AuthService) Logout() error {
	logger.Debug("Logging out")

	if err := credentials.DeleteFrom(as.env.CredentialsPath); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	as.env.Printer.Success("✓ Logged out")
	return nil
}

// Status reports whether feeds will load as an authenticated viewer
func (as *AuthService) Status() error {
	creds, err := credentials.LoadFrom(as.env.CredentialsPath)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	switch {
	case creds == nil:
		as.env.Printer.Info("Not logged in; feeds load anonymously")
	case creds.IsExpired():
		as.env.Printer.Warning("Login for %s expired at %s", creds.Username, creds.ExpiresAt.Format(time.RFC3339))
	default:
		as.env.Printer.Success("Logged in as %s (%s)", creds.Username, creds.UserID)
		if !creds.ExpiresAt.IsZero() {
			as.env.Printer.Info("Token expires %s", creds.ExpiresAt.Format(time.RFC3339))
		}
	}
	return nil
}
