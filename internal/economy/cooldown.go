package economy

import (
	"time"

	"servertycoon/internal/models"
)

// CanStartJob reports whether the job type's cooldown has expired. Cooldowns
// are independent per job type and expire lazily: a passed expiry simply
// permits a new start, nothing sweeps the map.
func CanStartJob(acct *models.Account, jobType string, now time.Time) bool {
	expiry, ok := acct.Cooldowns[jobType]
	if !ok {
		return true
	}
	return !now.Before(expiry)
}

// CooldownRemaining returns how long until the job type becomes available,
// zero if it already is.
func CooldownRemaining(acct *models.Account, jobType string, now time.Time) time.Duration {
	expiry, ok := acct.Cooldowns[jobType]
	if !ok || !now.Before(expiry) {
		return 0
	}
	return expiry.Sub(now)
}

// StartCooldown records now+cooldown for the job type. It is rejected
// without mutation while the existing expiry is still in the future.
func StartCooldown(acct *models.Account, jobType string, cooldown time.Duration, now time.Time) error {
	if !CanStartJob(acct, jobType, now) {
		return &CooldownError{JobType: jobType, Remaining: CooldownRemaining(acct, jobType, now)}
	}
	if acct.Cooldowns == nil {
		acct.Cooldowns = make(map[string]time.Time)
	}
	acct.Cooldowns[jobType] = now.Add(cooldown)
	return nil
}
