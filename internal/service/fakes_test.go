package service

import (
	"context"
	"errors"
	"fmt"

	"sorting-hat/internal/domain"
)

// memResults is an in-memory ResultRepository for tests.
type memResults struct {
	data   map[string]domain.HouseKey
	setErr error
}

func newMemResults() *memResults {
	return &memResults{data: make(map[string]domain.HouseKey)}
}

func (m *memResults) Get(userID string) (domain.HouseKey, bool) {
	house, ok := m.data[userID]
	return house, ok
}

func (m *memResults) Set(_ context.Context, userID string, house domain.HouseKey) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[userID] = house
	return nil
}

func (m *memResults) Remove(_ context.Context, userID string) error {
	delete(m.data, userID)
	return nil
}

func (m *memResults) Contains(userID string) bool {
	_, ok := m.data[userID]
	return ok
}

func (m *memResults) Size() int { return len(m.data) }

func (m *memResults) All() map[string]domain.HouseKey {
	out := make(map[string]domain.HouseKey, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// fakeGuild implements Guild against plain slices.
type fakeGuild struct {
	id      string
	name    string
	roles   []Role
	members map[string]*fakeMember
	nextID  int

	rolesErr     error
	createErr    error
	membersErr   error
	createdRoles []string
}

func newFakeGuild(id string) *fakeGuild {
	return &fakeGuild{id: id, name: "guild-" + id, members: map[string]*fakeMember{}}
}

func (g *fakeGuild) ID() string   { return g.id }
func (g *fakeGuild) Name() string { return g.name }

func (g *fakeGuild) Roles(context.Context) ([]Role, error) {
	if g.rolesErr != nil {
		return nil, g.rolesErr
	}
	out := make([]Role, len(g.roles))
	copy(out, g.roles)
	return out, nil
}

func (g *fakeGuild) CreateRole(_ context.Context, name string, _ int) (Role, error) {
	if g.createErr != nil {
		return Role{}, g.createErr
	}
	g.nextID++
	role := Role{ID: fmt.Sprintf("created-r%d", g.nextID), Name: name}
	g.roles = append(g.roles, role)
	g.createdRoles = append(g.createdRoles, name)
	return role, nil
}

func (g *fakeGuild) addRole(id, name string) Role {
	role := Role{ID: id, Name: name}
	g.roles = append(g.roles, role)
	return role
}

func (g *fakeGuild) Member(_ context.Context, userID string) (Member, error) {
	m, ok := g.members[userID]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

func (g *fakeGuild) Members(context.Context) ([]Member, error) {
	if g.membersErr != nil {
		return nil, g.membersErr
	}
	out := make([]Member, 0, len(g.members))
	for _, m := range g.members {
		out = append(out, m)
	}
	return out, nil
}

func (g *fakeGuild) addMember(userID string, bot bool, roleIDs ...string) *fakeMember {
	m := &fakeMember{id: userID, bot: bot, roles: roleIDs}
	g.members[userID] = m
	return m
}

type fakeMember struct {
	id        string
	bot       bool
	roles     []string
	addErr    error
	removeErr error
}

func (m *fakeMember) ID() string        { return m.id }
func (m *fakeMember) IsBot() bool       { return m.bot }
func (m *fakeMember) RoleIDs() []string { return m.roles }

func (m *fakeMember) AddRole(_ context.Context, roleID string) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.roles = append(m.roles, roleID)
	return nil
}

func (m *fakeMember) RemoveRole(_ context.Context, roleID string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	kept := m.roles[:0]
	for _, id := range m.roles {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.roles = kept
	return nil
}

func (m *fakeMember) hasRole(roleID string) bool {
	for _, id := range m.roles {
		if id == roleID {
			return true
		}
	}
	return false
}

var errBoom = errors.New("boom")
