package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sorting-hat/internal/domain"
	"sorting-hat/internal/repository"
)

// ScanService backfills the result store from roles that were assigned while
// the bot was offline (manual admin action, a previous process). It must
// finish even when individual guilds or members fail to enumerate.
type ScanService struct {
	roles   *RoleService
	results repository.ResultRepository
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewScanService(roles *RoleService, results repository.ResultRepository, guildInterval time.Duration, logger *zap.Logger) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if guildInterval <= 0 {
		guildInterval = time.Second
	}
	return &ScanService{
		roles:   roles,
		results: results,
		limiter: rate.NewLimiter(rate.Every(guildInterval), 1),
		logger:  logger,
	}
}

// ReconcileFromGuilds walks every guild and records a result for each non-bot
// member that holds a discovered house role but has none yet. Houses are
// checked in registry order and the first held role wins; a member holding
// several house roles is logged, not resolved.
func (s *ScanService) ReconcileFromGuilds(ctx context.Context, guilds []Guild) {
	for _, guild := range guilds {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("guild scan cancelled", zap.Error(err))
			return
		}
		if err := s.scanGuild(ctx, guild); err != nil {
			s.logger.Warn("guild scan failed, continuing",
				zap.String("guild", guild.ID()), zap.Error(err))
		}
	}
	s.logger.Info("guild scan complete", zap.Int("sorted_users", s.results.Size()))
}

func (s *ScanService) scanGuild(ctx context.Context, guild Guild) error {
	houseByRoleID := make(map[string]domain.HouseKey)
	var orderedRoleIDs []string
	for _, house := range domain.Houses {
		role, found, err := s.roles.FindHouseRole(ctx, guild, house)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		houseByRoleID[role.ID] = house.Key
		orderedRoleIDs = append(orderedRoleIDs, role.ID)
	}
	if len(houseByRoleID) == 0 {
		return nil
	}

	members, err := guild.Members(ctx)
	if err != nil {
		return err
	}

	backfilled := 0
	for _, member := range members {
		if member.IsBot() {
			continue
		}
		held := make(map[string]bool, len(member.RoleIDs()))
		heldCount := 0
		for _, id := range member.RoleIDs() {
			if _, ok := houseByRoleID[id]; ok {
				held[id] = true
				heldCount++
			}
		}
		if heldCount == 0 {
			continue
		}
		if heldCount > 1 {
			s.logger.Warn("member holds multiple house roles, taking first by registry order",
				zap.String("guild", guild.ID()), zap.String("user_id", member.ID()))
		}
		for _, roleID := range orderedRoleIDs {
			if !held[roleID] {
				continue
			}
			if !s.results.Contains(member.ID()) {
				if err := s.results.Set(ctx, member.ID(), houseByRoleID[roleID]); err != nil {
					s.logger.Warn("backfill result failed, continuing",
						zap.String("user_id", member.ID()), zap.Error(err))
					break
				}
				backfilled++
			}
			break
		}
	}

	s.logger.Info("guild scanned",
		zap.String("guild", guild.Name()),
		zap.Int("members", len(members)),
		zap.Int("backfilled", backfilled))
	return nil
}
