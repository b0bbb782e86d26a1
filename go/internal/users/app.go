// Package users manages operator accounts and the fixed admin credential.
package users

import (
	"fmt"
	"strings"

	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Config holds the admin credential and hashing cost.
type Config struct {
	AdminUsername string
	AdminPassword string
	BcryptCost    int
}

// App handles authentication and operator administration.
// It is not safe for concurrent use.
type App struct {
	repo *Repository
	cost int

	adminUsername    string
	adminHash        string
	defaultAdminHash string
}

// NewApp creates a new users App
func NewApp(cfg Config) (*App, error) {
	if cfg.AdminUsername == "" {
		return nil, fmt.Errorf("admin username is required")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return &App{
		repo:             NewRepository(),
		cost:             cfg.BcryptCost,
		adminUsername:    cfg.AdminUsername,
		adminHash:        string(hash),
		defaultAdminHash: string(hash),
	}, nil
}

// Authenticate resolves a credential to a principal. Empty credentials yield
// the viewer principal.
func (a *App) Authenticate(username, password string) (models.Principal, error) {
	if username == "" && password == "" {
		return models.Viewer(), nil
	}
	if username == a.adminUsername {
		if bcrypt.CompareHashAndPassword([]byte(a.adminHash), []byte(password)) != nil {
			return models.Principal{}, ErrInvalidCredentials
		}
		return models.Principal{Role: models.RoleAdmin, Username: username}, nil
	}
	rec, ok := a.repo.Get(username)
	if !ok || bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return models.Principal{}, ErrInvalidCredentials
	}
	return models.Principal{Role: models.RoleOperator, Username: username}, nil
}

// AddOperator creates an operator account with validation
func (a *App) AddOperator(username, password string) error {
	username = strings.TrimSpace(username)
	if err := a.validateNewOperator(username, password); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	hash, err := a.hash(password)
	if err != nil {
		return err
	}
	a.repo.Put(operatorRecord{Username: username, PasswordHash: hash})
	log.Info().Str("username", username).Int("operators", a.repo.Len()).Msg("operator added")
	return nil
}

// RemoveOperator deletes an operator account
func (a *App) RemoveOperator(username string) error {
	if !a.repo.Delete(username) {
		return fmt.Errorf("remove %q: %w", username, ErrOperatorNotFound)
	}
	log.Info().Str("username", username).Msg("operator removed")
	return nil
}

// Operators lists operator accounts without secrets.
func (a *App) Operators() []models.Operator {
	names := a.repo.Usernames()
	out := make([]models.Operator, 0, len(names))
	for _, n := range names {
		out = append(out, models.Operator{Username: n})
	}
	return out
}

// ChangePassword updates the password of the authenticated principal.
func (a *App) ChangePassword(p models.Principal, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	switch p.Role {
	case models.RoleAdmin:
		if bcrypt.CompareHashAndPassword([]byte(a.adminHash), []byte(oldPassword)) != nil {
			return ErrWrongPassword
		}
		hash, err := a.hash(newPassword)
		if err != nil {
			return err
		}
		a.adminHash = hash
	case models.RoleOperator:
		rec, ok := a.repo.Get(p.Username)
		if !ok {
			return fmt.Errorf("change password for %q: %w", p.Username, ErrOperatorNotFound)
		}
		if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(oldPassword)) != nil {
			return ErrWrongPassword
		}
		hash, err := a.hash(newPassword)
		if err != nil {
			return err
		}
		rec.PasswordHash = hash
		a.repo.Put(rec)
	default:
		return ErrInvalidCredentials
	}
	log.Info().Str("username", p.Username).Str("role", string(p.Role)).Msg("password changed")
	return nil
}

// Seed adds operators from configuration, skipping invalid entries.
func (a *App) Seed(creds []Credential) {
	for _, c := range creds {
		if err := a.AddOperator(c.Username, c.Password); err != nil {
			log.Warn().Err(err).Str("username", c.Username).Msg("skipping seeded operator")
		}
	}
}

// FactoryReset removes every operator and restores the configured admin password.
func (a *App) FactoryReset() {
	a.repo.Clear()
	a.adminHash = a.defaultAdminHash
}

func (a *App) validateNewOperator(username, password string) error {
	switch {
	case username == "":
		return fmt.Errorf("username is required")
	case username == a.adminUsername || username == models.ViewerUsername:
		return ErrReservedUsername
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	}
	if _, exists := a.repo.Get(username); exists {
		return ErrOperatorExists
	}
	if a.repo.Len() >= MaxOperators {
		return ErrOperatorLimit
	}
	return nil
}

func (a *App) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}
