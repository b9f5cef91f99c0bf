package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"go.uber.org/zap"

	"sorting-hat/internal/domain"
)

// ResultRepository is the durable user -> house mapping. Implementations keep
// the full table in memory and persist on every mutation (write-through).
type ResultRepository interface {
	Get(userID string) (domain.HouseKey, bool)
	Set(ctx context.Context, userID string, house domain.HouseKey) error
	Remove(ctx context.Context, userID string) error
	Contains(userID string) bool
	Size() int
	All() map[string]domain.HouseKey
}

// FileResultRepository persists the table as a single flat JSON object
// {userID: houseKey}. A missing file is an empty store; a corrupt file is
// logged and the store starts empty rather than failing startup.
type FileResultRepository struct {
	mu      sync.Mutex
	path    string
	results map[string]domain.HouseKey
	logger  *zap.Logger
}

func NewFileResultRepository(path string, logger *zap.Logger) *FileResultRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &FileResultRepository{
		path:    path,
		results: make(map[string]domain.HouseKey),
		logger:  logger,
	}
	r.load()
	return r
}

func (r *FileResultRepository) load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("read store file failed, starting empty", zap.String("path", r.path), zap.Error(err))
		}
		return
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Warn("store file is corrupt, starting empty", zap.String("path", r.path), zap.Error(err))
		return
	}

	for userID, key := range raw {
		houseKey, ok := domain.ParseHouseKey(key)
		if !ok {
			r.logger.Warn("store file has unknown house key, skipping entry",
				zap.String("user_id", userID), zap.String("house", key))
			continue
		}
		r.results[userID] = houseKey
	}
	r.logger.Info("loaded sorted users", zap.Int("count", len(r.results)), zap.String("path", r.path))
}

// persist writes the full table. Caller must hold r.mu. A write failure
// degrades the store to memory-only for this mutation; it is logged, not
// returned, so a broken disk never blocks sorting.
func (r *FileResultRepository) persist() {
	data, err := json.MarshalIndent(r.results, "", "  ")
	if err != nil {
		r.logger.Warn("marshal store failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		r.logger.Warn("write store file failed, results kept in memory only",
			zap.String("path", r.path), zap.Error(err))
	}
}

func (r *FileResultRepository) Get(userID string) (domain.HouseKey, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	house, ok := r.results[userID]
	return house, ok
}

func (r *FileResultRepository) Set(_ context.Context, userID string, house domain.HouseKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[userID] = house
	r.persist()
	return nil
}

func (r *FileResultRepository) Remove(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.results, userID)
	r.persist()
	return nil
}

func (r *FileResultRepository) Contains(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.results[userID]
	return ok
}

func (r *FileResultRepository) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *FileResultRepository) All() map[string]domain.HouseKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.HouseKey, len(r.results))
	for userID, house := range r.results {
		out[userID] = house
	}
	return out
}
