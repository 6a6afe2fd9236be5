package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type fakeLookup struct {
	subjects map[int64]*Subject
	calls    int
}

func (f *fakeLookup) LookupSubject(ctx context.Context, id int64) (*Subject, error) {
	f.calls++
	return f.subjects[id], nil
}

func TestResolver_ResolvesCurrentRoles(t *testing.T) {
	lookup := &fakeLookup{subjects: map[int64]*Subject{
		1: {ID: 1, Email: "a@example.com", Roles: []string{"Admin"}, Active: true},
	}}
	resolver := NewResolver(lookup, 0, 0, nil)

	p, err := resolver.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p == nil {
		t.Fatal("Resolve() = nil for an active subject")
	}
	if p.SubjectID != 1 || p.Email != "a@example.com" {
		t.Errorf("principal = %+v", p)
	}
	if !p.Roles.Has(RoleAdmin) {
		t.Errorf("roles = %v, want Admin", p.Roles.Strings())
	}
}

func TestResolver_DeauthorizesMissingAndInactive(t *testing.T) {
	lookup := &fakeLookup{subjects: map[int64]*Subject{
		2: {ID: 2, Email: "gone@example.com", Roles: []string{"User"}, Active: false},
	}}
	resolver := NewResolver(lookup, 0, 0, nil)

	for _, id := range []int64{2, 404} {
		p, err := resolver.Resolve(context.Background(), id)
		if err != nil {
			t.Fatalf("Resolve(%d) error = %v", id, err)
		}
		if p != nil {
			t.Errorf("Resolve(%d) = %+v, want nil (deauthorized)", id, p)
		}
	}
}

func TestResolver_EmptyRolesDefaultToUser(t *testing.T) {
	lookup := &fakeLookup{subjects: map[int64]*Subject{
		3: {ID: 3, Email: "c@example.com", Roles: nil, Active: true},
	}}
	resolver := NewResolver(lookup, 0, 0, nil)

	p, err := resolver.Resolve(context.Background(), 3)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.Roles.Has(RoleUser) {
		t.Errorf("roles = %v, want default {User}", p.Roles.Strings())
	}
}

func TestResolver_CacheAndInvalidate(t *testing.T) {
	lookup := &fakeLookup{subjects: map[int64]*Subject{
		1: {ID: 1, Email: "a@example.com", Roles: []string{"User"}, Active: true},
	}}
	resolver := NewResolver(lookup, 16, time.Minute, nil)

	ctx := context.Background()
	if _, err := resolver.Resolve(ctx, 1); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := resolver.Resolve(ctx, 1); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if lookup.calls != 1 {
		t.Errorf("store lookups = %d, want 1 (second resolve served from cache)", lookup.calls)
	}

	// A role change invalidates; the next resolve observes the new roles
	lookup.subjects[1].Roles = []string{"Site Admin"}
	resolver.Invalidate(ctx, 1)

	p, err := resolver.Resolve(ctx, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.Roles.Has(RoleSiteAdmin) {
		t.Errorf("roles after invalidate = %v, want Site Admin", p.Roles.Strings())
	}
	if lookup.calls != 2 {
		t.Errorf("store lookups = %d, want 2", lookup.calls)
	}
}

func TestResolver_CachedPrincipalIsNotShared(t *testing.T) {
	lookup := &fakeLookup{subjects: map[int64]*Subject{
		1: {ID: 1, Email: "a@example.com", Roles: []string{"User"}, Active: true},
	}}
	resolver := NewResolver(lookup, 16, time.Minute, nil)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// A caller attaching its request's impersonator id, or worse, must not
	// leak into any other caller's view of the same subject.
	impersonator := int64(7)
	first.ImpersonatorID = &impersonator
	first.Roles[RoleSiteAdmin] = struct{}{}

	second, err := resolver.Resolve(ctx, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if second.ImpersonatorID != nil {
		t.Errorf("second Resolve carries impersonatorId=%d from another caller's mutation", *second.ImpersonatorID)
	}
	if second.Roles.Has(RoleSiteAdmin) {
		t.Error("second Resolve observes a role mutation made by another caller")
	}
	if lookup.calls != 1 {
		t.Errorf("store lookups = %d, want 1 (second resolve served from cache)", lookup.calls)
	}
}

func TestResolver_RedisTier(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lookup := &fakeLookup{subjects: map[int64]*Subject{
		1: {ID: 1, Email: "a@example.com", Roles: []string{"Admin"}, Active: true},
	}}

	ctx := context.Background()
	first := NewResolver(lookup, 0, time.Minute, client)
	if _, err := first.Resolve(ctx, 1); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// A second resolver (another process) hits redis, not the store
	second := NewResolver(lookup, 0, time.Minute, client)
	p, err := second.Resolve(ctx, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.Roles.Has(RoleAdmin) {
		t.Errorf("roles = %v, want Admin", p.Roles.Strings())
	}
	if lookup.calls != 1 {
		t.Errorf("store lookups = %d, want 1", lookup.calls)
	}

	// Invalidate clears the shared tier too
	first.Invalidate(ctx, 1)
	if _, err := second.Resolve(ctx, 1); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if lookup.calls != 2 {
		t.Errorf("store lookups = %d, want 2 after invalidate", lookup.calls)
	}
}

func TestResolver_CorruptRedisEntryFallsThrough(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	mr.Set(principalCacheKey(1), "{not json")

	lookup := &fakeLookup{subjects: map[int64]*Subject{
		1: {ID: 1, Email: "a@example.com", Roles: []string{"User"}, Active: true},
	}}
	resolver := NewResolver(lookup, 0, time.Minute, client)

	p, err := resolver.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p == nil || !p.Roles.Has(RoleUser) {
		t.Errorf("principal = %+v, want resolved from store", p)
	}
	if lookup.calls != 1 {
		t.Errorf("store lookups = %d, want 1", lookup.calls)
	}
}
