// Package boltauth implements bolt.AuthValidator for the "basic" LOGON
// scheme: bcrypt-hashed passwords kept in memory, with an audit-log
// callback for compliance logging of every LOGON attempt.
package boltauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/GrafeoDB/boltr/pkg/bolt"
)

// Errors for credential management.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnsupportedScheme  = errors.New("unsupported auth scheme")
	ErrPasswordTooShort   = errors.New("password does not meet minimum length requirement")
)

// Credential is one registered basic-auth principal.
type Credential struct {
	ID           string
	Principal    string
	PasswordHash string
	CreatedAt    time.Time
}

// Config controls password policy for a Validator.
type Config struct {
	MinPasswordLength int
	BcryptCost        int
}

// DefaultConfig returns a Config with an 8-character minimum password and
// bcrypt's default cost.
func DefaultConfig() Config {
	return Config{MinPasswordLength: 8, BcryptCost: bcrypt.DefaultCost}
}

// AuditEvent records one LOGON attempt for compliance logging.
type AuditEvent struct {
	Timestamp time.Time
	Principal string
	Success   bool
	Details   string
}

// Validator implements bolt.AuthValidator against an in-memory principal
// table, accepting only the "basic" scheme.
type Validator struct {
	mu       sync.RWMutex
	users    map[string]*Credential // keyed by principal
	cfg      Config
	auditLog func(AuditEvent)
}

// NewValidator creates a Validator with the given configuration.
func NewValidator(cfg Config) *Validator {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.MinPasswordLength == 0 {
		cfg.MinPasswordLength = 8
	}
	return &Validator{users: make(map[string]*Credential), cfg: cfg}
}

// SetAuditLogger sets the audit logging callback.
func (v *Validator) SetAuditLogger(fn func(AuditEvent)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.auditLog = fn
}

func (v *Validator) logAudit(event AuditEvent) {
	if v.auditLog != nil {
		event.Timestamp = time.Now()
		v.auditLog(event)
	}
}

// Register adds a new basic-auth principal, hashing password with bcrypt.
func (v *Validator) Register(principal, password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.users[principal]; exists {
		return ErrUserExists
	}
	if len(password) < v.cfg.MinPasswordLength {
		return fmt.Errorf("%w: minimum %d characters required", ErrPasswordTooShort, v.cfg.MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	v.users[principal] = &Credential{
		ID:           generateID(),
		Principal:    principal,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	return nil
}

// RemovePrincipal deletes a registered principal.
func (v *Validator) RemovePrincipal(principal string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.users[principal]; !exists {
		return ErrUserNotFound
	}
	delete(v.users, principal)
	return nil
}

// Validate implements bolt.AuthValidator. It accepts only the "basic"
// scheme; "none" and every other scheme are rejected.
func (v *Validator) Validate(ctx context.Context, creds bolt.AuthCredentials) error {
	if creds.Scheme != "basic" {
		v.logAudit(AuditEvent{Principal: creds.Principal, Success: false, Details: "unsupported scheme: " + creds.Scheme})
		return fmt.Errorf("%w: %s", ErrUnsupportedScheme, creds.Scheme)
	}

	v.mu.RLock()
	user, exists := v.users[creds.Principal]
	v.mu.RUnlock()
	if !exists {
		v.logAudit(AuditEvent{Principal: creds.Principal, Success: false, Details: "principal not found"})
		return ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Credentials)); err != nil {
		v.logAudit(AuditEvent{Principal: creds.Principal, Success: false, Details: "password mismatch"})
		return ErrInvalidCredentials
	}

	v.logAudit(AuditEvent{Principal: creds.Principal, Success: true})
	return nil
}

func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
