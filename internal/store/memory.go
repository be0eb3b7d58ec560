package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"servertycoon/internal/models"
)

// Memory is a thread-safe in-memory gateway for tests and prototyping.
type Memory struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[string]*models.Account
	fleet    map[string][]models.FleetServer // owner id -> rows
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextID:   1,
		accounts: make(map[string]*models.Account),
		fleet:    make(map[string][]models.FleetServer),
	}
}

// clone round-trips through JSON so callers never share mutable state with
// the store. Accounts are documents; this mirrors how the Postgres gateway
// serializes owned collections.
func cloneAccount(acct *models.Account) *models.Account {
	raw, _ := json.Marshal(acct)
	var out models.Account
	_ = json.Unmarshal(raw, &out)
	out.PasswordHash = acct.PasswordHash
	return &out
}

func (m *Memory) CreateAccount(_ context.Context, acct *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.accounts {
		if existing.Nickname == acct.Nickname {
			return ErrConflict
		}
	}
	if acct.ID == "" {
		acct.ID = fmt.Sprintf("%d", m.nextID)
		m.nextID++
	} else if _, exists := m.accounts[acct.ID]; exists {
		return ErrConflict
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	m.accounts[acct.ID] = cloneAccount(acct)
	return nil
}

func (m *Memory) LoadAccount(_ context.Context, id string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(acct), nil
}

func (m *Memory) LoadAccountByNickname(_ context.Context, nickname string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, acct := range m.accounts {
		if acct.Nickname == nickname {
			return cloneAccount(acct), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SaveAccount(_ context.Context, acct *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.accounts[acct.ID]
	if !ok {
		return ErrNotFound
	}
	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()
	m.accounts[acct.ID] = cloneAccount(acct)
	return nil
}

func (m *Memory) LoadFleet(_ context.Context) ([]models.FleetServer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []models.FleetServer
	for _, rows := range m.fleet {
		all = append(all, rows...)
	}
	return all, nil
}

func (m *Memory) RebuildFleet(_ context.Context, acct *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := fleetRows(acct)
	if len(rows) == 0 {
		delete(m.fleet, acct.ID)
		return nil
	}
	m.fleet[acct.ID] = rows
	return nil
}

func (m *Memory) ListAccountsWithOnlineServers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for owner, rows := range m.fleet {
		for _, row := range rows {
			if row.Online {
				ids = append(ids, owner)
				break
			}
		}
	}
	return ids, nil
}
