package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"servertycoon/internal/models"
)

// Postgres is the durable gateway. Owned collections (servers, quests,
// cooldowns, activity, learning) are stored as jsonb documents on the
// account row, so a load/save round-trips the whole record.
type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{Pool: pool}
}

const accountColumns = `id, nickname, password_hash, balance, experience, server_limit,
	cooldowns, learning, quests, quests_reset_at, achievements, activity, servers,
	total_jobs, courses_completed, last_income_update, online, muted, banned,
	created_at, updated_at`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func marshalDoc(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(raw), nil
}

func (p *Postgres) CreateAccount(ctx context.Context, acct *models.Account) error {
	cooldowns, err := marshalDoc(acct.Cooldowns)
	if err != nil {
		return err
	}
	quests, err := marshalDoc(acct.Quests)
	if err != nil {
		return err
	}
	achievements, err := marshalDoc(acct.Achievements)
	if err != nil {
		return err
	}
	activity, err := marshalDoc(acct.Activity)
	if err != nil {
		return err
	}
	servers, err := marshalDoc(acct.Servers)
	if err != nil {
		return err
	}
	var id string
	err = p.Pool.QueryRow(ctx, `INSERT INTO accounts
		(nickname, password_hash, balance, experience, server_limit, cooldowns, quests, quests_reset_at,
		achievements, activity, servers, last_income_update)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9::jsonb, $10::jsonb, $11::jsonb, $12)
		RETURNING id`,
		acct.Nickname, acct.PasswordHash, acct.Balance, acct.Experience, acct.ServerLimit,
		cooldowns, quests, acct.QuestsResetAt, achievements, activity, servers, acct.LastIncomeUpdate).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	acct.ID = id
	return nil
}

func (p *Postgres) LoadAccount(ctx context.Context, id string) (*models.Account, error) {
	row := p.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
	return scanAccount(row)
}

func (p *Postgres) LoadAccountByNickname(ctx context.Context, nickname string) (*models.Account, error) {
	row := p.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE nickname=$1`, nickname)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var acct models.Account
	var cooldowns, quests, achievements, activity, servers []byte
	var learning []byte
	err := row.Scan(&acct.ID, &acct.Nickname, &acct.PasswordHash, &acct.Balance, &acct.Experience,
		&acct.ServerLimit, &cooldowns, &learning, &quests, &acct.QuestsResetAt, &achievements,
		&activity, &servers, &acct.TotalJobs, &acct.CoursesCompleted, &acct.LastIncomeUpdate,
		&acct.Online, &acct.Muted, &acct.Banned, &acct.CreatedAt, &acct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if err := json.Unmarshal(cooldowns, &acct.Cooldowns); err != nil {
		return nil, fmt.Errorf("decode cooldowns: %w", err)
	}
	if len(learning) > 0 && string(learning) != "null" {
		acct.Learning = &models.LearningSession{}
		if err := json.Unmarshal(learning, acct.Learning); err != nil {
			return nil, fmt.Errorf("decode learning: %w", err)
		}
	}
	if err := json.Unmarshal(quests, &acct.Quests); err != nil {
		return nil, fmt.Errorf("decode quests: %w", err)
	}
	if err := json.Unmarshal(achievements, &acct.Achievements); err != nil {
		return nil, fmt.Errorf("decode achievements: %w", err)
	}
	if err := json.Unmarshal(activity, &acct.Activity); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	if err := json.Unmarshal(servers, &acct.Servers); err != nil {
		return nil, fmt.Errorf("decode servers: %w", err)
	}
	return &acct, nil
}

func (p *Postgres) SaveAccount(ctx context.Context, acct *models.Account) error {
	cooldowns, err := marshalDoc(acct.Cooldowns)
	if err != nil {
		return err
	}
	quests, err := marshalDoc(acct.Quests)
	if err != nil {
		return err
	}
	achievements, err := marshalDoc(acct.Achievements)
	if err != nil {
		return err
	}
	activity, err := marshalDoc(acct.Activity)
	if err != nil {
		return err
	}
	servers, err := marshalDoc(acct.Servers)
	if err != nil {
		return err
	}
	learning := "null"
	if acct.Learning != nil {
		learning, err = marshalDoc(acct.Learning)
		if err != nil {
			return err
		}
	}

	cmd, err := p.Pool.Exec(ctx, `UPDATE accounts SET
		balance=$1, experience=$2, server_limit=$3, cooldowns=$4::jsonb, learning=$5::jsonb,
		quests=$6::jsonb, quests_reset_at=$7, achievements=$8::jsonb, activity=$9::jsonb,
		servers=$10::jsonb, total_jobs=$11, courses_completed=$12, last_income_update=$13,
		online=$14, muted=$15, banned=$16, updated_at=now()
		WHERE id=$17`,
		acct.Balance, acct.Experience, acct.ServerLimit, cooldowns, learning,
		quests, acct.QuestsResetAt, achievements, activity,
		servers, acct.TotalJobs, acct.CoursesCompleted, acct.LastIncomeUpdate,
		acct.Online, acct.Muted, acct.Banned, acct.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) LoadFleet(ctx context.Context) ([]models.FleetServer, error) {
	rows, err := p.Pool.Query(ctx, `SELECT server_id, owner_id, owner_nickname, product_id, online, load_pct, created_at
		FROM fleet_servers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query fleet: %w", err)
	}
	defer rows.Close()

	var fleet []models.FleetServer
	for rows.Next() {
		var fs models.FleetServer
		if err := rows.Scan(&fs.ServerID, &fs.OwnerID, &fs.OwnerNickname, &fs.ProductID, &fs.Online, &fs.Load, &fs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fleet row: %w", err)
		}
		fleet = append(fleet, fs)
	}
	return fleet, rows.Err()
}

// RebuildFleet rewrites the owner's rows wholesale. The index is a derived
// cache; it is cheaper and safer to replace than to patch incrementally.
func (p *Postgres) RebuildFleet(ctx context.Context, acct *models.Account) error {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin fleet rebuild: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM fleet_servers WHERE owner_id=$1`, acct.ID); err != nil {
		return fmt.Errorf("clear fleet rows: %w", err)
	}
	for _, fs := range fleetRows(acct) {
		if _, err := tx.Exec(ctx, `INSERT INTO fleet_servers
			(server_id, owner_id, owner_nickname, product_id, online, load_pct, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			fs.ServerID, fs.OwnerID, fs.OwnerNickname, fs.ProductID, fs.Online, fs.Load, fs.CreatedAt); err != nil {
			return fmt.Errorf("insert fleet row: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) ListAccountsWithOnlineServers(ctx context.Context) ([]string, error) {
	rows, err := p.Pool.Query(ctx, `SELECT DISTINCT owner_id FROM fleet_servers WHERE online`)
	if err != nil {
		return nil, fmt.Errorf("query online owners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
