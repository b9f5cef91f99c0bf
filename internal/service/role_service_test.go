package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"sorting-hat/internal/domain"
)

func gryffindor(t *testing.T) domain.House {
	t.Helper()
	house, ok := domain.HouseByKey(domain.Gryffindor)
	if !ok {
		t.Fatalf("registry is missing GRYFFINDOR")
	}
	return house
}

func TestFindHouseRole_EmojiBeatsExactName(t *testing.T) {
	svc := NewRoleService(newMemResults(), zap.NewNop())
	guild := newFakeGuild("g1")
	custom := guild.addRole("r1", "The 🦁 Lions Den")
	guild.addRole("r2", "Gryffindor")

	role, found, err := svc.FindHouseRole(context.Background(), guild, gryffindor(t))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !found || role.ID != custom.ID {
		t.Fatalf("expected emoji-substring match %q, got %+v (found=%v)", custom.ID, role, found)
	}
}

func TestFindHouseRole_ExactThenFoldedSubstring(t *testing.T) {
	svc := NewRoleService(newMemResults(), zap.NewNop())

	guild := newFakeGuild("g1")
	exact := guild.addRole("r1", "Gryffindor")
	role, found, err := svc.FindHouseRole(context.Background(), guild, gryffindor(t))
	if err != nil || !found || role.ID != exact.ID {
		t.Fatalf("expected exact-name match, got %+v found=%v err=%v", role, found, err)
	}

	styled := newFakeGuild("g2")
	fancy := styled.addRole("r9", "⚡ GRYFFINDÖR HOUSE ⚡")
	role, found, err = svc.FindHouseRole(context.Background(), styled, gryffindor(t))
	if err != nil || !found || role.ID != fancy.ID {
		t.Fatalf("expected diacritic-folded match, got %+v found=%v err=%v", role, found, err)
	}
}

func TestFindHouseRole_AbsenceIsNotAnError(t *testing.T) {
	svc := NewRoleService(newMemResults(), zap.NewNop())
	guild := newFakeGuild("g1")
	guild.addRole("r1", "Moderators")

	_, found, err := svc.FindHouseRole(context.Background(), guild, gryffindor(t))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found {
		t.Fatalf("expected no match")
	}
}

func TestEnsureAssigned_CreatesGrantsAndStripsSentinels(t *testing.T) {
	results := newMemResults()
	svc := NewRoleService(results, zap.NewNop())
	guild := newFakeGuild("g1")
	s1 := guild.addRole("s1", domain.SentinelRoleName)
	s2 := guild.addRole("s2", domain.SentinelRoleName) // duplicate from manual admin action
	member := guild.addMember("u1", false, s1.ID, s2.ID)

	if err := svc.EnsureAssigned(context.Background(), guild, "u1", gryffindor(t)); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if len(guild.createdRoles) != 1 || guild.createdRoles[0] != "Gryffindor" {
		t.Fatalf("expected one created Gryffindor role, got %v", guild.createdRoles)
	}
	if member.hasRole(s1.ID) || member.hasRole(s2.ID) {
		t.Fatalf("expected every sentinel role stripped, member holds %v", member.roles)
	}
	if len(member.roles) != 1 {
		t.Fatalf("expected exactly the house role, got %v", member.roles)
	}
	if key, ok := results.Get("u1"); !ok || key != domain.Gryffindor {
		t.Fatalf("expected recorded result, got %q ok=%v", key, ok)
	}
}

func TestEnsureAssigned_IsIdempotent(t *testing.T) {
	results := newMemResults()
	svc := NewRoleService(results, zap.NewNop())
	guild := newFakeGuild("g1")
	sentinel := guild.addRole("s1", domain.SentinelRoleName)
	guild.addMember("u1", false, sentinel.ID)

	house := gryffindor(t)
	if err := svc.EnsureAssigned(context.Background(), guild, "u1", house); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := svc.EnsureAssigned(context.Background(), guild, "u1", house); err != nil {
		t.Fatalf("second ensure must not error: %v", err)
	}

	member := guild.members["u1"]
	if len(member.roles) != 1 {
		t.Fatalf("expected exactly one held role after double ensure, got %v", member.roles)
	}
	if len(guild.createdRoles) != 1 {
		t.Fatalf("expected a single role creation, got %v", guild.createdRoles)
	}
}

func TestEnsureAssigned_GrantFailureIsPrimary(t *testing.T) {
	svc := NewRoleService(newMemResults(), zap.NewNop())
	guild := newFakeGuild("g1")
	guild.addRole("r1", "Gryffindor")
	member := guild.addMember("u1", false)
	member.addErr = fmt.Errorf("add role: %w", ErrMissingPermission)

	err := svc.EnsureAssigned(context.Background(), guild, "u1", gryffindor(t))
	if !errors.Is(err, ErrMissingPermission) {
		t.Fatalf("expected missing-permission class, got %v", err)
	}
}

func TestEnsureAssigned_SentinelFailureDoesNotMaskGrant(t *testing.T) {
	svc := NewRoleService(newMemResults(), zap.NewNop())
	guild := newFakeGuild("g1")
	house := guild.addRole("r1", "Gryffindor")
	sentinel := guild.addRole("s1", domain.SentinelRoleName)
	member := guild.addMember("u1", false, sentinel.ID)
	member.removeErr = errBoom

	err := svc.EnsureAssigned(context.Background(), guild, "u1", gryffindor(t))
	if err == nil {
		t.Fatalf("expected sentinel cleanup error")
	}
	if !errors.Is(err, errBoom) || errors.Is(err, ErrMissingPermission) {
		t.Fatalf("expected secondary failure to surface as itself, got %v", err)
	}
	// The grant must have happened and must stay granted.
	if !member.hasRole(house.ID) {
		t.Fatalf("expected house role to remain granted, member holds %v", member.roles)
	}
}

func TestEnsureAssigned_MemberNotFound(t *testing.T) {
	svc := NewRoleService(newMemResults(), zap.NewNop())
	guild := newFakeGuild("g1")
	guild.addRole("r1", "Gryffindor")

	err := svc.EnsureAssigned(context.Background(), guild, "ghost", gryffindor(t))
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestClearAssignment_RestoresSentinel(t *testing.T) {
	results := newMemResults()
	results.data["u1"] = domain.Gryffindor
	svc := NewRoleService(results, zap.NewNop())
	guild := newFakeGuild("g1")
	houseRole := guild.addRole("r1", "Gryffindor")
	member := guild.addMember("u1", false, houseRole.ID)

	if err := svc.ClearAssignment(context.Background(), guild, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if member.hasRole(houseRole.ID) {
		t.Fatalf("expected house role removed, member holds %v", member.roles)
	}
	if len(member.roles) != 1 {
		t.Fatalf("expected exactly the sentinel role, got %v", member.roles)
	}
	if len(guild.createdRoles) != 1 || guild.createdRoles[0] != domain.SentinelRoleName {
		t.Fatalf("expected sentinel role creation, got %v", guild.createdRoles)
	}
	if results.Contains("u1") {
		t.Fatalf("expected result removed from store")
	}
}

func TestClearAssignment_AfterEnsureRoundTrip(t *testing.T) {
	results := newMemResults()
	svc := NewRoleService(results, zap.NewNop())
	guild := newFakeGuild("g1")
	sentinel := guild.addRole("s1", domain.SentinelRoleName)
	member := guild.addMember("u1", false, sentinel.ID)

	if err := svc.EnsureAssigned(context.Background(), guild, "u1", gryffindor(t)); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := svc.ClearAssignment(context.Background(), guild, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if len(member.roles) != 1 || !member.hasRole(sentinel.ID) {
		t.Fatalf("expected exactly the original sentinel back, got %v", member.roles)
	}
	if results.Contains("u1") {
		t.Fatalf("expected result removed")
	}
}

func TestCreateHouseRole_DuplicateCreateRaceCountsAsSuccess(t *testing.T) {
	svc := NewRoleService(newMemResults(), zap.NewNop())
	guild := newFakeGuild("g1")
	guild.createErr = errBoom
	guild.addMember("u1", false)

	// Simulate the concurrent winner having created the role between our
	// find and our create.
	existing := guild.addRole("r1", "Gryffindor")
	role, err := svc.createHouseRole(context.Background(), guild, gryffindor(t))
	if err != nil {
		t.Fatalf("expected re-discovery to succeed, got %v", err)
	}
	if role.ID != existing.ID {
		t.Fatalf("expected the existing role, got %+v", role)
	}
}
