// Package engine owns the economy and progression operations: income
// accrual, server lifecycle, jobs, quests, achievements and courses. Every
// mutating operation for an account runs under that account's lock, loads
// the full record through the gateway, validates before mutating, and writes
// the record back.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"servertycoon/internal/catalog"
	"servertycoon/internal/clock"
	"servertycoon/internal/economy"
	"servertycoon/internal/models"
	"servertycoon/internal/store"
)

// Account creation defaults.
const (
	StartingBalance    = 1000
	DefaultServerLimit = 3
	DefaultServerLoad  = 50
)

// Repair pricing: each durability point costs price/500; partial mode
// restores at most 25 points.
const (
	repairPriceDivisor  = 500
	partialRepairPoints = 25
)

type Engine struct {
	store store.Gateway
	cat   *catalog.Catalog
	clock clock.Clock
	log   *logrus.Logger

	rand  func() float64
	newID func() string
	locks *keyedMutex
}

func New(gw store.Gateway, cat *catalog.Catalog, clk clock.Clock, log *logrus.Logger) *Engine {
	return &Engine{
		store: gw,
		cat:   cat,
		clock: clk,
		log:   log,
		rand:  rand.Float64,
		newID: uuid.NewString,
		locks: newKeyedMutex(),
	}
}

// Catalog exposes the immutable reference data to the API layer.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Now exposes the engine clock so presentation-layer computations stay
// consistent with cooldown and session timestamps.
func (e *Engine) Now() time.Time { return e.clock.Now() }

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return economy.ErrNotFound
	}
	return err
}

// mutate runs fn on the freshly loaded account under the account lock and
// persists the result. fn returning an error leaves stored state unchanged.
// When fn reports a fleet change, the shared index is rebuilt after the
// account write; the two writes are not atomic and the index is only a
// derived cache.
func (e *Engine) mutate(ctx context.Context, accountID string, fn func(acct *models.Account) (fleetChanged bool, err error)) (*models.Account, error) {
	unlock := e.locks.lock(accountID)
	defer unlock()

	acct, err := e.store.LoadAccount(ctx, accountID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	fleetChanged, err := fn(acct)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}
	if fleetChanged {
		if err := e.store.RebuildFleet(ctx, acct); err != nil {
			return nil, fmt.Errorf("rebuild fleet index: %w", err)
		}
	}
	return acct, nil
}

// =============================================================================
// Accounts
// =============================================================================

// CreateAccount registers a new player with starting balance, capacity and a
// fresh daily quest set. passwordHash comes from the auth layer.
func (e *Engine) CreateAccount(ctx context.Context, nickname, passwordHash string) (*models.Account, error) {
	now := e.clock.Now()
	acct := &models.Account{
		Nickname:         nickname,
		PasswordHash:     passwordHash,
		Balance:          StartingBalance,
		ServerLimit:      DefaultServerLimit,
		Cooldowns:        make(map[string]time.Time),
		Quests:           economy.GenerateDailyQuests(e.cat.Quests, now, e.newID),
		QuestsResetAt:    now,
		LastIncomeUpdate: now,
	}
	acct.AddActivity("Joined the game", now)
	if err := e.store.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Account loads the record without mutating it.
func (e *Engine) Account(ctx context.Context, accountID string) (*models.Account, error) {
	acct, err := e.store.LoadAccount(ctx, accountID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return acct, nil
}

// AccountByNickname is used by the login flow.
func (e *Engine) AccountByNickname(ctx context.Context, nickname string) (*models.Account, error) {
	acct, err := e.store.LoadAccountByNickname(ctx, nickname)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return acct, nil
}

// Profile returns the account with income accrued and quests reset-checked,
// so balances are fresh on page load.
func (e *Engine) Profile(ctx context.Context, accountID string) (*models.Account, error) {
	return e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		now := e.clock.Now()
		fleetChanged := e.accrueLocked(acct, now)
		economy.CheckQuestReset(acct, e.cat.Quests, now, e.newID)
		return fleetChanged, nil
	})
}

// CollectIncome runs one explicit accrual pass.
func (e *Engine) CollectIncome(ctx context.Context, accountID string) (economy.AccrualResult, *models.Account, error) {
	var result economy.AccrualResult
	acct, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		now := e.clock.Now()
		var fleetChanged bool
		result, fleetChanged = e.accrueAndCheckOverloads(acct, now)
		return fleetChanged, nil
	})
	if err != nil {
		return economy.AccrualResult{}, nil, err
	}
	return result, acct, nil
}

// accrueLocked applies income accrual and its follow-on effects (quest
// progress, achievements). Returns whether the fleet index needs a rebuild.
func (e *Engine) accrueLocked(acct *models.Account, now time.Time) bool {
	_, fleetChanged := e.accrueAndCheckOverloads(acct, now)
	return fleetChanged
}

// accrueAndCheckOverloads is the single income path shared by the request
// handlers and the background sweep.
func (e *Engine) accrueAndCheckOverloads(acct *models.Account, now time.Time) (economy.AccrualResult, bool) {
	result := economy.Accrue(acct, e.cat, now)
	if result.Income > 0 {
		economy.UpdateQuestProgress(acct, economy.IncomeEvent(result.Income))
		e.unlockAchievements(acct, now)
	}

	fleetChanged := false
	for i := range acct.Servers {
		srv := &acct.Servers[i]
		load := srv.Load
		if economy.CheckOverload(srv, now, e.rand) {
			acct.AddActivity(fmt.Sprintf("Server went offline: overload at %d%% load", load), now)
			e.log.WithFields(logrus.Fields{
				"account_id": acct.ID,
				"server_id":  srv.ID,
				"load":       load,
			}).Info("server forced offline by overload")
			fleetChanged = true
		}
	}
	return result, fleetChanged
}

func (e *Engine) unlockAchievements(acct *models.Account, now time.Time) {
	unlocked := economy.EvaluateAchievements(acct, e.cat.Achievements, economy.StatsOf(acct))
	for _, def := range unlocked {
		acct.AddActivity(fmt.Sprintf("Achievement unlocked: %s (+%d)", def.Title, def.Reward), now)
	}
}

// =============================================================================
// Server lifecycle
// =============================================================================

// PurchaseServer buys a product: level, capacity and funds are all checked
// before any mutation.
func (e *Engine) PurchaseServer(ctx context.Context, accountID, productID string) (*models.Server, error) {
	var created *models.Server
	_, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		product := e.cat.ProductByID(productID)
		if product == nil {
			return false, economy.ErrNotFound
		}
		level := economy.Level(acct.Experience)
		if level < product.RequiredLevel {
			return false, &economy.LevelError{Required: product.RequiredLevel, Current: level}
		}
		if len(acct.Servers) >= acct.ServerLimit {
			return false, economy.ErrCapacityExceeded
		}
		if acct.Balance < product.Price {
			return false, &economy.FundsError{Price: product.Price, Balance: acct.Balance}
		}

		now := e.clock.Now()
		acct.Balance -= product.Price
		srv := models.Server{
			ID:         e.newID(),
			OwnerID:    acct.ID,
			ProductID:  product.ID,
			Online:     true,
			Load:       DefaultServerLoad,
			Durability: 100,
			CreatedAt:  now,
		}
		acct.Servers = append(acct.Servers, srv)
		created = &acct.Servers[len(acct.Servers)-1]
		acct.AddActivity(fmt.Sprintf("Purchased %s (-%d)", product.Name, product.Price), now)
		e.unlockAchievements(acct, now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ToggleServer flips a server between online and offline.
func (e *Engine) ToggleServer(ctx context.Context, accountID, serverID string) (*models.Server, error) {
	var toggled *models.Server
	_, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		srv := acct.FindServer(serverID)
		if srv == nil {
			return false, economy.ErrNotFound
		}
		now := e.clock.Now()
		// Settle income at the old fleet composition before the flip.
		e.accrueLocked(acct, now)
		srv.Online = !srv.Online
		state := "offline"
		if srv.Online {
			state = "online"
		}
		acct.AddActivity(fmt.Sprintf("Server switched %s", state), now)
		toggled = srv
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return toggled, nil
}

// SetServerLoad adjusts the load percentage; values outside [10,100] are
// rejected.
func (e *Engine) SetServerLoad(ctx context.Context, accountID, serverID string, load int) (*models.Server, error) {
	if load < 10 || load > 100 {
		return nil, economy.ErrInvalidRange
	}
	var updated *models.Server
	_, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		srv := acct.FindServer(serverID)
		if srv == nil {
			return false, economy.ErrNotFound
		}
		// Settle income at the old rate before changing it.
		e.accrueLocked(acct, e.clock.Now())
		srv.Load = load
		updated = srv
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteServer removes a server from the account and the shared index. No
// refund.
func (e *Engine) DeleteServer(ctx context.Context, accountID, serverID string) error {
	_, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		idx := -1
		for i := range acct.Servers {
			if acct.Servers[i].ID == serverID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false, economy.ErrNotFound
		}
		now := e.clock.Now()
		e.accrueLocked(acct, now)
		acct.Servers = append(acct.Servers[:idx], acct.Servers[idx+1:]...)
		acct.AddActivity("Server dismantled", now)
		return true, nil
	})
	return err
}

// Repair modes.
const (
	RepairFull    = "full"
	RepairPartial = "partial"
)

// RepairServer restores durability. Full mode restores everything, partial
// restores up to 25 points at the same per-point price.
func (e *Engine) RepairServer(ctx context.Context, accountID, serverID, mode string) (*models.Server, error) {
	if mode != RepairFull && mode != RepairPartial {
		return nil, economy.ErrInvalidRange
	}
	var repaired *models.Server
	_, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		srv := acct.FindServer(serverID)
		if srv == nil {
			return false, economy.ErrNotFound
		}
		product := e.cat.ProductByID(srv.ProductID)
		if product == nil {
			return false, economy.ErrNotFound
		}

		points := 100 - srv.Durability
		if points <= 0 {
			repaired = srv
			return false, nil
		}
		if mode == RepairPartial && points > partialRepairPoints {
			points = partialRepairPoints
		}
		cost := int64(points) * product.Price / repairPriceDivisor
		if acct.Balance < cost {
			return false, &economy.FundsError{Price: cost, Balance: acct.Balance}
		}

		now := e.clock.Now()
		acct.Balance -= cost
		srv.Durability += points
		acct.AddActivity(fmt.Sprintf("Repaired %s (-%d)", product.Name, cost), now)
		repaired = srv
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return repaired, nil
}

// Fleet returns the shared cross-account index.
func (e *Engine) Fleet(ctx context.Context) ([]models.FleetServer, error) {
	return e.store.LoadFleet(ctx)
}

// =============================================================================
// Jobs
// =============================================================================

// JobResult reports what a completed job credited.
type JobResult struct {
	Reward     int64 `json:"reward"`
	Experience int64 `json:"experience"`
	Level      int   `json:"level"`
	LeveledUp  bool  `json:"leveled_up"`
}

// StartJob runs a job: the cooldown check is the gate, reward and experience
// are credited immediately and the cooldown starts.
func (e *Engine) StartJob(ctx context.Context, accountID, jobTypeID string) (JobResult, error) {
	var result JobResult
	_, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		job := e.cat.Job(jobTypeID)
		if job == nil {
			return false, economy.ErrNotFound
		}
		now := e.clock.Now()
		if err := economy.StartCooldown(acct, job.ID, job.Cooldown, now); err != nil {
			return false, err
		}

		before := economy.Level(acct.Experience)
		acct.Balance += job.Reward
		acct.Experience += job.Experience
		acct.TotalJobs++
		after := economy.Level(acct.Experience)

		acct.AddActivity(fmt.Sprintf("Completed job: %s (+%d)", job.Title, job.Reward), now)
		if after > before {
			acct.AddActivity(fmt.Sprintf("Reached level %d", after), now)
		}
		economy.UpdateQuestProgress(acct, economy.JobEvent(job.ID))
		e.unlockAchievements(acct, now)

		result = JobResult{Reward: job.Reward, Experience: job.Experience, Level: after, LeveledUp: after > before}
		return false, nil
	})
	if err != nil {
		return JobResult{}, err
	}
	return result, nil
}

// =============================================================================
// Quests
// =============================================================================

// Quests returns the account's daily quest set, regenerating it when the
// rolling 24-hour window has passed.
func (e *Engine) Quests(ctx context.Context, accountID string) ([]models.DailyQuest, error) {
	acct, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		economy.CheckQuestReset(acct, e.cat.Quests, e.clock.Now(), e.newID)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return acct.Quests, nil
}

// ClaimQuest converts a completed quest into a credited reward, exactly once.
func (e *Engine) ClaimQuest(ctx context.Context, accountID, questID string) (int64, error) {
	var reward int64
	_, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		r, err := economy.ClaimQuest(acct, questID)
		if err != nil {
			return false, err
		}
		now := e.clock.Now()
		acct.Balance += r
		acct.AddActivity(fmt.Sprintf("Claimed quest reward (+%d)", r), now)
		e.unlockAchievements(acct, now)
		reward = r
		return false, nil
	})
	if err != nil {
		return 0, err
	}
	return reward, nil
}

// =============================================================================
// Courses
// =============================================================================

// StartCourse begins a learning session. One session at a time.
func (e *Engine) StartCourse(ctx context.Context, accountID, courseID string) (*models.LearningSession, error) {
	var session *models.LearningSession
	_, err := e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		course := e.cat.CourseByID(courseID)
		if course == nil {
			return false, economy.ErrNotFound
		}
		if acct.Learning != nil {
			return false, economy.ErrCourseActive
		}
		if acct.Balance < course.Price {
			return false, &economy.FundsError{Price: course.Price, Balance: acct.Balance}
		}

		now := e.clock.Now()
		acct.Balance -= course.Price
		acct.Learning = &models.LearningSession{
			CourseID:  course.ID,
			StartedAt: now,
			EndsAt:    now.Add(course.Duration),
		}
		acct.AddActivity(fmt.Sprintf("Started course: %s", course.Title), now)
		session = acct.Learning
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// FinishCourse completes the active session once its end time has passed and
// credits the experience reward.
func (e *Engine) FinishCourse(ctx context.Context, accountID string) (*models.Account, error) {
	return e.mutate(ctx, accountID, func(acct *models.Account) (bool, error) {
		if acct.Learning == nil {
			return false, economy.ErrNotFound
		}
		now := e.clock.Now()
		if now.Before(acct.Learning.EndsAt) {
			return false, economy.ErrCourseNotFinished
		}
		course := e.cat.CourseByID(acct.Learning.CourseID)
		acct.Learning = nil
		if course != nil {
			before := economy.Level(acct.Experience)
			acct.Experience += course.Experience
			acct.CoursesCompleted++
			after := economy.Level(acct.Experience)
			acct.AddActivity(fmt.Sprintf("Completed course: %s (+%d XP)", course.Title, course.Experience), now)
			if after > before {
				acct.AddActivity(fmt.Sprintf("Reached level %d", after), now)
			}
			e.unlockAchievements(acct, now)
		}
		return false, nil
	})
}

// =============================================================================
// Background sweep
// =============================================================================

// SweepIncome accrues income for every account with at least one online
// server. Each account runs in its own failure boundary: one failing account
// is logged and never prevents processing of the rest.
func (e *Engine) SweepIncome(ctx context.Context) (processed, failed int) {
	ids, err := e.store.ListAccountsWithOnlineServers(ctx)
	if err != nil {
		e.log.WithError(err).Error("income sweep: listing accounts failed")
		return 0, 0
	}
	for _, id := range ids {
		if _, err := e.mutate(ctx, id, func(acct *models.Account) (bool, error) {
			return e.accrueLocked(acct, e.clock.Now()), nil
		}); err != nil {
			failed++
			e.log.WithError(err).WithField("account_id", id).Warn("income sweep: account accrual failed")
			continue
		}
		processed++
	}
	return processed, failed
}
