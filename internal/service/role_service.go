package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"sorting-hat/internal/domain"
	"sorting-hat/internal/repository"
)

// Role is the minimal view of an external guild role.
type Role struct {
	ID   string
	Name string
}

// Guild is the capability a guild must expose to the reconciliation engine.
type Guild interface {
	ID() string
	Name() string
	Roles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, name string, color int) (Role, error)
	Member(ctx context.Context, userID string) (Member, error)
	Members(ctx context.Context) ([]Member, error)
}

// Member is the capability a guild member must expose.
type Member interface {
	ID() string
	IsBot() bool
	RoleIDs() []string
	AddRole(ctx context.Context, roleID string) error
	RemoveRole(ctx context.Context, roleID string) error
}

var (
	// ErrMissingPermission flags the platform refusing a role mutation.
	// Adapters translate their transport-specific code into this.
	ErrMissingPermission = errors.New("missing permission to manage roles")
	ErrMemberNotFound    = errors.New("member not found")
)

// RoleService makes external role state match the internal result: the
// target house role held, every other house role and the Muggles sentinel
// stripped. Guild roles are externally managed, so discovery is fuzzy and
// every step tolerates pre-existing or duplicate state.
type RoleService struct {
	results repository.ResultRepository
	logger  *zap.Logger
}

func NewRoleService(results repository.ResultRepository, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{results: results, logger: logger}
}

// FindHouseRole resolves a house to a guild role, in priority order: a name
// containing the house emoji, an exact name match, then a case-insensitive
// diacritic-folded substring match. Absence is a normal outcome.
func (s *RoleService) FindHouseRole(ctx context.Context, guild Guild, house domain.House) (Role, bool, error) {
	roles, err := guild.Roles(ctx)
	if err != nil {
		return Role{}, false, fmt.Errorf("list roles for guild %s: %w", guild.ID(), err)
	}

	for _, role := range roles {
		if strings.Contains(role.Name, house.Emoji) {
			return role, true, nil
		}
	}
	for _, role := range roles {
		if role.Name == house.Name {
			return role, true, nil
		}
	}
	needle := foldName(house.Name)
	for _, role := range roles {
		if strings.Contains(foldName(role.Name), needle) {
			return role, true, nil
		}
	}
	return Role{}, false, nil
}

// EnsureAssigned records the result and converges the member's roles on it.
// The result is written first so a role failure never loses a sorting; role
// steps are not rolled back and not retried.
func (s *RoleService) EnsureAssigned(ctx context.Context, guild Guild, userID string, house domain.House) error {
	if s.results != nil {
		if err := s.results.Set(ctx, userID, house.Key); err != nil {
			return fmt.Errorf("record result: %w", err)
		}
	}

	role, found, err := s.FindHouseRole(ctx, guild, house)
	if err != nil {
		return err
	}
	if !found {
		role, err = s.createHouseRole(ctx, guild, house)
		if err != nil {
			return err
		}
	}

	member, err := guild.Member(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch member %s: %w", userID, err)
	}

	if memberHasRole(member, role.ID) {
		s.logger.Info("member already has house role",
			zap.String("user_id", userID), zap.String("role", role.Name))
	} else if err := member.AddRole(ctx, role.ID); err != nil {
		if errors.Is(err, ErrMissingPermission) {
			s.logger.Error("cannot grant house role: bot role must sit above house roles",
				zap.String("guild", guild.ID()), zap.String("role", role.Name))
		}
		return fmt.Errorf("grant role %s to %s: %w", role.Name, userID, err)
	}

	// Sentinel cleanup is a secondary concern: a failure here is reported,
	// but it must not be mistaken for the grant failing.
	if err := s.removeSentinelRoles(ctx, guild, member); err != nil {
		s.logger.Warn("house role granted but sentinel cleanup failed",
			zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("sentinel cleanup after grant: %w", err)
	}
	return nil
}

// ClearAssignment removes the result and every house role the member holds,
// then restores the sentinel role.
func (s *RoleService) ClearAssignment(ctx context.Context, guild Guild, userID string) error {
	if s.results != nil {
		if err := s.results.Remove(ctx, userID); err != nil {
			return fmt.Errorf("remove result: %w", err)
		}
	}

	member, err := guild.Member(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch member %s: %w", userID, err)
	}

	for _, house := range domain.Houses {
		role, found, err := s.FindHouseRole(ctx, guild, house)
		if err != nil {
			return err
		}
		if !found || !memberHasRole(member, role.ID) {
			continue
		}
		if err := member.RemoveRole(ctx, role.ID); err != nil {
			return fmt.Errorf("remove role %s from %s: %w", role.Name, userID, err)
		}
	}

	sentinel, found, err := s.findSentinelRole(ctx, guild)
	if err != nil {
		return err
	}
	if !found {
		sentinel, err = guild.CreateRole(ctx, domain.SentinelRoleName, 0)
		if err != nil {
			return fmt.Errorf("create sentinel role: %w", err)
		}
		s.logger.Info("created sentinel role", zap.String("guild", guild.ID()))
	}
	if !memberHasRole(member, sentinel.ID) {
		if err := member.AddRole(ctx, sentinel.ID); err != nil {
			return fmt.Errorf("grant sentinel role to %s: %w", userID, err)
		}
	}
	return nil
}

// createHouseRole tolerates a concurrent identical request: when creation
// fails, discovery runs once more and an existing role counts as success.
func (s *RoleService) createHouseRole(ctx context.Context, guild Guild, house domain.House) (Role, error) {
	role, err := guild.CreateRole(ctx, house.Name, house.Color)
	if err == nil {
		s.logger.Info("created house role",
			zap.String("guild", guild.ID()), zap.String("role", house.Name))
		return role, nil
	}

	existing, found, findErr := s.FindHouseRole(ctx, guild, house)
	if findErr == nil && found {
		return existing, nil
	}
	return Role{}, fmt.Errorf("create role %s: %w", house.Name, err)
}

// removeSentinelRoles strips every role named exactly Muggles that the
// member holds. Manual admin action can leave duplicates; all of them go.
func (s *RoleService) removeSentinelRoles(ctx context.Context, guild Guild, member Member) error {
	roles, err := guild.Roles(ctx)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	for _, role := range roles {
		if role.Name != domain.SentinelRoleName || !memberHasRole(member, role.ID) {
			continue
		}
		if err := member.RemoveRole(ctx, role.ID); err != nil {
			return fmt.Errorf("remove sentinel role %s: %w", role.ID, err)
		}
	}
	return nil
}

func (s *RoleService) findSentinelRole(ctx context.Context, guild Guild) (Role, bool, error) {
	roles, err := guild.Roles(ctx)
	if err != nil {
		return Role{}, false, fmt.Errorf("list roles: %w", err)
	}
	for _, role := range roles {
		if role.Name == domain.SentinelRoleName {
			return role, true, nil
		}
	}
	return Role{}, false, nil
}

func memberHasRole(member Member, roleID string) bool {
	for _, id := range member.RoleIDs() {
		if id == roleID {
			return true
		}
	}
	return false
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases and strips diacritics, so "Gryffindör" matches
// "gryffindor".
func foldName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(folded)
}
