package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"sorting-hat/internal/service"
)

// guildAdapter exposes a discordgo guild through the narrow capability
// interface the reconciliation engine works against.
type guildAdapter struct {
	session *discordgo.Session
	guildID string
	name    string
}

func newGuildAdapter(session *discordgo.Session, guildID, name string) *guildAdapter {
	return &guildAdapter{session: session, guildID: guildID, name: name}
}

func (g *guildAdapter) ID() string   { return g.guildID }
func (g *guildAdapter) Name() string { return g.name }

func (g *guildAdapter) Roles(ctx context.Context) ([]service.Role, error) {
	roles, err := g.session.GuildRoles(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateErr(err)
	}
	out := make([]service.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, service.Role{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (g *guildAdapter) CreateRole(ctx context.Context, name string, color int) (service.Role, error) {
	role, err := g.session.GuildRoleCreate(g.guildID, &discordgo.RoleParams{
		Name:  name,
		Color: &color,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return service.Role{}, translateErr(err)
	}
	return service.Role{ID: role.ID, Name: role.Name}, nil
}

func (g *guildAdapter) Member(ctx context.Context, userID string) (service.Member, error) {
	m, err := g.session.GuildMember(g.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownMember(err) {
			return nil, fmt.Errorf("member %s in guild %s: %w", userID, g.guildID, service.ErrMemberNotFound)
		}
		return nil, translateErr(err)
	}
	return newMemberAdapter(g.session, g.guildID, m), nil
}

// Members pages through the full member list, 1000 at a time.
func (g *guildAdapter) Members(ctx context.Context) ([]service.Member, error) {
	var out []service.Member
	after := ""
	for {
		page, err := g.session.GuildMembers(g.guildID, after, 1000, discordgo.WithContext(ctx))
		if err != nil {
			return nil, translateErr(err)
		}
		if len(page) == 0 {
			return out, nil
		}
		for _, m := range page {
			out = append(out, newMemberAdapter(g.session, g.guildID, m))
		}
		after = page[len(page)-1].User.ID
	}
}

type memberAdapter struct {
	session *discordgo.Session
	guildID string
	member  *discordgo.Member
}

func newMemberAdapter(session *discordgo.Session, guildID string, member *discordgo.Member) *memberAdapter {
	return &memberAdapter{session: session, guildID: guildID, member: member}
}

func (m *memberAdapter) ID() string {
	if m.member.User == nil {
		return ""
	}
	return m.member.User.ID
}

func (m *memberAdapter) IsBot() bool {
	return m.member.User != nil && m.member.User.Bot
}

func (m *memberAdapter) RoleIDs() []string { return m.member.Roles }

func (m *memberAdapter) AddRole(ctx context.Context, roleID string) error {
	if err := m.session.GuildMemberRoleAdd(m.guildID, m.ID(), roleID, discordgo.WithContext(ctx)); err != nil {
		return translateErr(err)
	}
	m.member.Roles = append(m.member.Roles, roleID)
	return nil
}

func (m *memberAdapter) RemoveRole(ctx context.Context, roleID string) error {
	if err := m.session.GuildMemberRoleRemove(m.guildID, m.ID(), roleID, discordgo.WithContext(ctx)); err != nil {
		return translateErr(err)
	}
	kept := m.member.Roles[:0]
	for _, id := range m.member.Roles {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.member.Roles = kept
	return nil
}

// translateErr maps the platform's missing-permission code onto the service
// sentinel so the engine can flag it distinctly.
func translateErr(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil &&
		restErr.Message.Code == discordgo.ErrCodeMissingPermissions {
		return fmt.Errorf("%w: %s", service.ErrMissingPermission, restErr.Message.Message)
	}
	return err
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Message != nil &&
		restErr.Message.Code == discordgo.ErrCodeUnknownMember
}
