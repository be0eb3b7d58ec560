package economy

import (
	"errors"
	"fmt"
	"time"
)

// Validation failures surfaced to the caller. None are retried internally,
// and no mutation happens unless the full validation chain for an operation
// passes.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientLevel = errors.New("insufficient level")
	ErrCapacityExceeded  = errors.New("server capacity exceeded")
	ErrCooldownActive    = errors.New("cooldown active")
	ErrNotFound          = errors.New("not found")
	ErrInvalidRange      = errors.New("value out of range")
	ErrAlreadyClaimed    = errors.New("quest already claimed")
	ErrNotCompleted      = errors.New("quest not completed")
	ErrCourseActive      = errors.New("a course is already in progress")
	ErrCourseNotFinished = errors.New("course not finished yet")
)

// CooldownError carries the remaining wait so the caller can render it.
type CooldownError struct {
	JobType   string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("job %s on cooldown for %s", e.JobType, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// LevelError carries the level requirement that was not met.
type LevelError struct {
	Required int
	Current  int
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("requires level %d, current level %d", e.Required, e.Current)
}

func (e *LevelError) Unwrap() error { return ErrInsufficientLevel }

// FundsError carries the price and available balance.
type FundsError struct {
	Price   int64
	Balance int64
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("need %d, balance %d", e.Price, e.Balance)
}

func (e *FundsError) Unwrap() error { return ErrInsufficientFunds }
