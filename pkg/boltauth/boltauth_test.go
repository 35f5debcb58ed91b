package boltauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/boltr/pkg/bolt"
)

func TestValidatorAcceptsCorrectBasicCredentials(t *testing.T) {
	v := NewValidator(DefaultConfig())
	require.NoError(t, v.Register("alice", "correct-password"))

	err := v.Validate(context.Background(), bolt.AuthCredentials{
		Scheme: "basic", Principal: "alice", Credentials: "correct-password",
	})
	assert.NoError(t, err)
}

func TestValidatorRejectsWrongPassword(t *testing.T) {
	v := NewValidator(DefaultConfig())
	require.NoError(t, v.Register("alice", "correct-password"))

	err := v.Validate(context.Background(), bolt.AuthCredentials{
		Scheme: "basic", Principal: "alice", Credentials: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidatorRejectsUnsupportedScheme(t *testing.T) {
	v := NewValidator(DefaultConfig())
	err := v.Validate(context.Background(), bolt.AuthCredentials{Scheme: "none"})
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestValidatorRejectsShortPassword(t *testing.T) {
	v := NewValidator(DefaultConfig())
	err := v.Register("bob", "short")
	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestValidatorRejectsDuplicateRegistration(t *testing.T) {
	v := NewValidator(DefaultConfig())
	require.NoError(t, v.Register("alice", "correct-password"))
	err := v.Register("alice", "another-password")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestValidatorAuditLogReceivesEvents(t *testing.T) {
	v := NewValidator(DefaultConfig())
	require.NoError(t, v.Register("alice", "correct-password"))

	var events []AuditEvent
	v.SetAuditLogger(func(e AuditEvent) { events = append(events, e) })

	_ = v.Validate(context.Background(), bolt.AuthCredentials{Scheme: "basic", Principal: "alice", Credentials: "correct-password"})
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)
}
