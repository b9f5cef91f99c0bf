package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sorting-hat/internal/domain"
)

// PgResultRepository keeps the same in-memory table as the file store but
// writes through to Postgres. Selected when DATABASE_URL is configured.
//
// Expected schema:
//
//	CREATE TABLE sorted_users (
//	    user_id TEXT PRIMARY KEY,
//	    house   TEXT NOT NULL
//	);
type PgResultRepository struct {
	mu      sync.Mutex
	pool    *pgxpool.Pool
	results map[string]domain.HouseKey
	logger  *zap.Logger
}

func NewPgResultRepository(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) *PgResultRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &PgResultRepository{
		pool:    pool,
		results: make(map[string]domain.HouseKey),
		logger:  logger,
	}
	r.load(ctx)
	return r
}

func (r *PgResultRepository) load(ctx context.Context) {
	const query = `SELECT user_id, house FROM sorted_users`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Warn("load sorted users from db failed, starting empty", zap.Error(err))
		return
	}
	defer rows.Close()

	for rows.Next() {
		var userID, key string
		if err := rows.Scan(&userID, &key); err != nil {
			r.logger.Warn("scan sorted user row failed, skipping", zap.Error(err))
			continue
		}
		houseKey, ok := domain.ParseHouseKey(key)
		if !ok {
			r.logger.Warn("db row has unknown house key, skipping",
				zap.String("user_id", userID), zap.String("house", key))
			continue
		}
		r.results[userID] = houseKey
	}
	if err := rows.Err(); err != nil {
		r.logger.Warn("iterate sorted users failed", zap.Error(err))
	}
	r.logger.Info("loaded sorted users", zap.Int("count", len(r.results)), zap.String("source", "postgres"))
}

func (r *PgResultRepository) Get(userID string) (domain.HouseKey, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	house, ok := r.results[userID]
	return house, ok
}

func (r *PgResultRepository) Set(ctx context.Context, userID string, house domain.HouseKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[userID] = house

	const query = `
		INSERT INTO sorted_users (user_id, house)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET house = EXCLUDED.house
	`
	if _, err := r.pool.Exec(ctx, query, userID, string(house)); err != nil {
		r.logger.Warn("persist sorted user failed, result kept in memory only",
			zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

func (r *PgResultRepository) Remove(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.results, userID)

	const query = `DELETE FROM sorted_users WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		r.logger.Warn("delete sorted user failed, removal kept in memory only",
			zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

func (r *PgResultRepository) Contains(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.results[userID]
	return ok
}

func (r *PgResultRepository) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *PgResultRepository) All() map[string]domain.HouseKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.HouseKey, len(r.results))
	for userID, house := range r.results {
		out[userID] = house
	}
	return out
}
