package economy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servertycoon/internal/models"
)

func TestStartCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	acct := &models.Account{ID: "a1"}

	require.True(t, CanStartJob(acct, "backup", now))
	require.NoError(t, StartCooldown(acct, "backup", 5*time.Minute, now))

	assert.False(t, CanStartJob(acct, "backup", now.Add(4*time.Minute)))
	assert.Equal(t, time.Minute, CooldownRemaining(acct, "backup", now.Add(4*time.Minute)))
	assert.True(t, CanStartJob(acct, "backup", now.Add(5*time.Minute)))
}

func TestStartCooldownWhileActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	acct := &models.Account{ID: "a1"}
	require.NoError(t, StartCooldown(acct, "backup", 5*time.Minute, now))

	err := StartCooldown(acct, "backup", 5*time.Minute, now.Add(time.Minute))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCooldownActive))

	var cdErr *CooldownError
	require.True(t, errors.As(err, &cdErr))
	assert.Equal(t, "backup", cdErr.JobType)
	assert.Equal(t, 4*time.Minute, cdErr.Remaining)

	// The original expiry is untouched.
	assert.Equal(t, now.Add(5*time.Minute), acct.Cooldowns["backup"])
}

func TestCooldownsIndependentPerJobType(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	acct := &models.Account{ID: "a1"}
	require.NoError(t, StartCooldown(acct, "backup", 5*time.Minute, now))

	assert.True(t, CanStartJob(acct, "cleanup", now))
	require.NoError(t, StartCooldown(acct, "cleanup", 2*time.Minute, now))
	assert.False(t, CanStartJob(acct, "backup", now.Add(time.Minute)))
	assert.True(t, CanStartJob(acct, "cleanup", now.Add(3*time.Minute)))
}

func TestCooldownExpiresLazily(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	acct := &models.Account{ID: "a1"}
	require.NoError(t, StartCooldown(acct, "backup", 5*time.Minute, now))

	// An expired entry is simply permissive, nothing removes it.
	later := now.Add(time.Hour)
	assert.True(t, CanStartJob(acct, "backup", later))
	assert.Equal(t, time.Duration(0), CooldownRemaining(acct, "backup", later))
	assert.Contains(t, acct.Cooldowns, "backup")

	require.NoError(t, StartCooldown(acct, "backup", 5*time.Minute, later))
	assert.Equal(t, later.Add(5*time.Minute), acct.Cooldowns["backup"])
}
