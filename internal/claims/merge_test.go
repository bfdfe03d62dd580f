package claims

import (
	"slices"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seededProfile() RoleProfile {
	p, changed := Merge(RoleProfile{IdentityID: "uid-1"}, SeedIntent("a@x.com", "Alice", "su-1", t0))
	if !changed {
		panic("seed of empty profile must change it")
	}
	return p
}

func TestMergeSeed(t *testing.T) {
	p := seededProfile()

	if !slices.Equal(p.Roles, []string{RoleUser}) {
		t.Fatalf("expected seeded roles {User}, got %v", p.Roles)
	}
	if p.CreatedBy != SystemActor || p.UpdatedBy != SystemActor {
		t.Fatalf("expected System audit actors, got %q/%q", p.CreatedBy, p.UpdatedBy)
	}
	if p.IsDeleted {
		t.Fatal("seeded profile must not be deleted")
	}
	if p.SystemUserID != "su-1" {
		t.Fatalf("expected systemUserId attached, got %q", p.SystemUserID)
	}
	if !p.CreatedAt.Equal(t0) || !p.UpdatedAt.Equal(t0) {
		t.Fatalf("expected timestamps from intent, got %v/%v", p.CreatedAt, p.UpdatedAt)
	}
}

func TestMergeSeedIdempotent(t *testing.T) {
	p := seededProfile()

	again, changed := Merge(p, SeedIntent("a@x.com", "Alice", "su-1", t0.Add(time.Minute)))
	if changed {
		t.Fatal("redelivered seed must be a no-op")
	}
	if !slices.Equal(again.Roles, p.Roles) {
		t.Fatalf("redelivered seed changed roles: %v", again.Roles)
	}
}

func TestMergeAddRole(t *testing.T) {
	p := seededProfile()

	next, changed := Merge(p, AddRoleIntent(RoleBusiness, "admin-1", t0.Add(time.Hour)))
	if !changed {
		t.Fatal("expected add of new role to change profile")
	}
	want := []string{RoleBusiness, RoleUser}
	if !slices.Equal(next.Roles, want) {
		t.Fatalf("expected roles %v, got %v", want, next.Roles)
	}
	if next.UpdatedBy != "admin-1" {
		t.Fatalf("expected updatedBy stamped, got %q", next.UpdatedBy)
	}
}

func TestMergeAddRoleIdempotent(t *testing.T) {
	p := seededProfile()
	once, _ := Merge(p, AddRoleIntent(RoleBusiness, "admin-1", t0))

	twice, changed := Merge(once, AddRoleIntent(RoleBusiness, "admin-1", t0.Add(time.Minute)))
	if changed {
		t.Fatal("duplicate add must be a no-op")
	}
	if !slices.Equal(twice.Roles, once.Roles) {
		t.Fatalf("duplicate add changed roles: %v -> %v", once.Roles, twice.Roles)
	}
}

func TestMergeRemoveRole(t *testing.T) {
	p := seededProfile()
	p, _ = Merge(p, AddRoleIntent(RoleBusiness, SystemActor, t0))

	next, changed := Merge(p, RemoveRoleIntent(RoleBusiness, SystemActor, t0.Add(time.Hour)))
	if !changed {
		t.Fatal("expected removal of present role to change profile")
	}
	if !slices.Equal(next.Roles, []string{RoleUser}) {
		t.Fatalf("expected roles {User}, got %v", next.Roles)
	}
}

func TestMergeRemoveRoleIdempotent(t *testing.T) {
	p := seededProfile()

	next, changed := Merge(p, RemoveRoleIntent(RoleBusiness, SystemActor, t0))
	if changed {
		t.Fatal("removal of absent role must be a no-op")
	}
	if !slices.Equal(next.Roles, []string{RoleUser}) {
		t.Fatalf("no-op removal changed roles: %v", next.Roles)
	}
}

func TestMergeAddRemoveCommutesUnderRedelivery(t *testing.T) {
	// Add(x), Remove(y), Add(z) on disjoint names, with one duplicated
	// delivery, must converge to the same set in any order.
	intents := []Intent{
		AddRoleIntent("x", SystemActor, t0),
		RemoveRoleIntent("y", SystemActor, t0),
		AddRoleIntent("z", SystemActor, t0),
		AddRoleIntent("x", SystemActor, t0), // duplicate delivery
	}

	orders := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
		{1, 3, 0, 2},
	}

	var want []string
	for i, order := range orders {
		p := seededProfile()
		for _, idx := range order {
			p, _ = Merge(p, intents[idx])
		}
		if i == 0 {
			want = p.Roles
			continue
		}
		if !slices.Equal(p.Roles, want) {
			t.Fatalf("order %v diverged: expected %v, got %v", order, want, p.Roles)
		}
	}
}

func TestMergeReplaceAll(t *testing.T) {
	p := seededProfile()

	next, changed := Merge(p, ReplaceAllIntent([]string{RoleAdmin}, "b@x.com", "Bob", "su-2", "admin-1", t0.Add(time.Hour)))
	if !changed {
		t.Fatal("replace-all must always report a change")
	}
	if !slices.Equal(next.Roles, []string{RoleAdmin}) {
		t.Fatalf("expected roles {Admin} regardless of prior set, got %v", next.Roles)
	}
	if next.Email != "b@x.com" || next.DisplayName != "Bob" {
		t.Fatalf("expected display fields overwritten, got %q/%q", next.Email, next.DisplayName)
	}
	if next.SystemUserID != "su-2" {
		t.Fatalf("expected systemUserId overwritten, got %q", next.SystemUserID)
	}
	if next.UpdatedBy != "admin-1" {
		t.Fatalf("expected updatedBy stamped, got %q", next.UpdatedBy)
	}
}

func TestMergeReplaceAllLastWriterWins(t *testing.T) {
	// Two interleaved authoritative changes: no version check exists, so the
	// final state follows delivery order. Pinned so a future version-check
	// change is made consciously.
	p := seededProfile()
	first := ReplaceAllIntent([]string{RoleAdmin}, "a@x.com", "Alice", "su-1", "admin-1", t0.Add(time.Minute))
	second := ReplaceAllIntent([]string{RoleBusiness}, "a@x.com", "Alice", "su-1", "admin-2", t0.Add(2*time.Minute))

	p, _ = Merge(p, first)
	p, _ = Merge(p, second)
	if !slices.Equal(p.Roles, []string{RoleBusiness}) {
		t.Fatalf("expected last writer to win, got %v", p.Roles)
	}

	q := seededProfile()
	q, _ = Merge(q, second)
	q, _ = Merge(q, first)
	if !slices.Equal(q.Roles, []string{RoleAdmin}) {
		t.Fatalf("expected last writer to win, got %v", q.Roles)
	}
}

func TestMergeStaleIntentDoesNotRewindUpdatedAt(t *testing.T) {
	p := seededProfile()
	p, _ = Merge(p, AddRoleIntent(RoleBusiness, SystemActor, t0.Add(time.Hour)))

	// A delayed event with an older OccurredAt still changes the role set but
	// must not move updatedAt backwards.
	next, changed := Merge(p, AddRoleIntent(RoleAdmin, SystemActor, t0.Add(-time.Hour)))
	if !changed {
		t.Fatal("stale add of a new role must still change the profile")
	}
	if !next.HasRole(RoleAdmin) {
		t.Fatalf("expected role applied, got %v", next.Roles)
	}
	if !next.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("updatedAt regressed: %v -> %v", t0.Add(time.Hour), next.UpdatedAt)
	}
}

func TestMergeStaleTombstoneClampsTimestamps(t *testing.T) {
	p := seededProfile()
	p, _ = Merge(p, AddRoleIntent(RoleBusiness, SystemActor, t0.Add(time.Hour)))

	next, changed := Merge(p, TombstoneIntent("admin-1", t0.Add(-time.Hour)))
	if !changed {
		t.Fatal("stale tombstone of a live profile must still delete it")
	}
	if !next.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("updatedAt regressed: %v", next.UpdatedAt)
	}
	if !next.DeletedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("deletedAt set before updatedAt: %v", next.DeletedAt)
	}
}

func TestMergeTombstone(t *testing.T) {
	p := seededProfile()

	next, changed := Merge(p, TombstoneIntent("admin-1", t0.Add(time.Hour)))
	if !changed {
		t.Fatal("tombstone of live profile must change it")
	}
	if !next.IsDeleted {
		t.Fatal("expected isDeleted=true")
	}
	if len(next.Roles) != 0 {
		t.Fatalf("expected roles cleared, got %v", next.Roles)
	}
	if next.DeletedBy != "admin-1" || !next.DeletedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("expected deletion audit fields, got %q/%v", next.DeletedBy, next.DeletedAt)
	}
}

func TestMergeTombstoneIdempotent(t *testing.T) {
	p := seededProfile()
	p, _ = Merge(p, TombstoneIntent("admin-1", t0))

	again, changed := Merge(p, TombstoneIntent("admin-2", t0.Add(time.Minute)))
	if changed {
		t.Fatal("re-tombstoning must be a no-op")
	}
	if again.DeletedBy != "admin-1" {
		t.Fatalf("re-tombstoning must not rewrite audit fields, got %q", again.DeletedBy)
	}
}

func TestMergeTombstoneIsMonotonic(t *testing.T) {
	p := seededProfile()
	p, _ = Merge(p, TombstoneIntent(SystemActor, t0))

	stale := []Intent{
		SeedIntent("a@x.com", "Alice", "su-1", t0.Add(time.Minute)),
		AddRoleIntent(RoleUser, SystemActor, t0.Add(time.Minute)),
		RemoveRoleIntent(RoleUser, SystemActor, t0.Add(time.Minute)),
		ReplaceAllIntent([]string{RoleAdmin}, "b@x.com", "Bob", "su-2", "admin-1", t0.Add(time.Minute)),
	}

	for _, intent := range stale {
		next, changed := Merge(p, intent)
		if changed {
			t.Fatalf("intent %s resurrected a tombstoned profile", intent.Kind)
		}
		if !next.IsDeleted {
			t.Fatalf("intent %s cleared isDeleted", intent.Kind)
		}
		if len(next.Roles) != 0 {
			t.Fatalf("intent %s grew roles on tombstoned profile: %v", intent.Kind, next.Roles)
		}
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	p := seededProfile()
	before := slices.Clone(p.Roles)

	_, _ = Merge(p, AddRoleIntent(RoleBusiness, SystemActor, t0))
	if !slices.Equal(p.Roles, before) {
		t.Fatalf("merge mutated its input: %v -> %v", before, p.Roles)
	}
}
