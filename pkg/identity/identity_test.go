package identity

import (
	"testing"

	"github.com/zkdao/corevote/pkg/corerr"
)

func TestCreateUnitAndHas(t *testing.T) {
	r := New()
	id, err := r.CreateUnit("acme", "alice", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Has(id, "alice") {
		t.Fatal("creator should not automatically be a member")
	}
	if err := r.Mint(id, "alice", "alice"); err != nil {
		t.Fatalf("unexpected error minting creator as member: %v", err)
	}
	if !r.Has(id, "alice") {
		t.Fatal("expected alice to be a member after mint")
	}
}

func TestCreateUnitRejectsLongName(t *testing.T) {
	r := New()
	_, err := r.CreateUnit("this-unit-name-is-far-too-long-to-be-valid", "alice", false, false)
	if !corerr.Is(err, corerr.NameTooLong) {
		t.Fatalf("expected NameTooLong, got %v", err)
	}
}

func TestMintRequiresAdmin(t *testing.T) {
	r := New()
	id, _ := r.CreateUnit("acme", "alice", false, false)
	err := r.Mint(id, "bob", "mallory")
	if !corerr.Is(err, corerr.NotAdmin) {
		t.Fatalf("expected NotAdmin, got %v", err)
	}
}

func TestMintRejectsDuplicate(t *testing.T) {
	r := New()
	id, _ := r.CreateUnit("acme", "alice", false, false)
	if err := r.Mint(id, "bob", "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := r.Mint(id, "bob", "alice")
	if !corerr.Is(err, corerr.AlreadyMember) {
		t.Fatalf("expected AlreadyMember, got %v", err)
	}
}

func TestSelfJoinRequiresOpenMembership(t *testing.T) {
	r := New()
	id, _ := r.CreateUnit("acme", "alice", false, false)
	err := r.SelfJoin(id, "bob")
	if !corerr.Is(err, corerr.MembershipClosed) {
		t.Fatalf("expected MembershipClosed, got %v", err)
	}

	open, _ := r.CreateUnit("acme-open", "alice", true, false)
	if err := r.SelfJoin(open, "bob"); err != nil {
		t.Fatalf("unexpected error on open self-join: %v", err)
	}
	if !r.Has(open, "bob") {
		t.Fatal("expected bob to be a member after self-join")
	}
}

func TestRevokeAndLeave(t *testing.T) {
	r := New()
	id, _ := r.CreateUnit("acme", "alice", false, false)
	_ = r.Mint(id, "bob", "alice")
	_ = r.Mint(id, "carol", "alice")

	if err := r.Revoke(id, "bob", "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Has(id, "bob") {
		t.Fatal("bob should no longer be a member")
	}

	if err := r.Leave(id, "carol"); err != nil {
		t.Fatalf("unexpected error on leave: %v", err)
	}
	if r.Has(id, "carol") {
		t.Fatal("carol should no longer be a member after leaving")
	}

	err := r.Revoke(id, "dave", "alice")
	if !corerr.Is(err, corerr.NotMember) {
		t.Fatalf("expected NotMember, got %v", err)
	}
}

func TestTransferAdmin(t *testing.T) {
	r := New()
	id, _ := r.CreateUnit("acme", "alice", false, false)
	if err := r.TransferAdmin(id, "bob", "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Mint(id, "carol", "alice"); !corerr.Is(err, corerr.NotAdmin) {
		t.Fatalf("expected alice to have lost admin rights, got %v", err)
	}
	if err := r.Mint(id, "carol", "bob"); err != nil {
		t.Fatalf("expected bob to be the new admin: %v", err)
	}
}

func TestGetUnknownUnit(t *testing.T) {
	r := New()
	_, err := r.Get(999)
	if !corerr.Is(err, corerr.NotInitialized) {
		t.Fatalf("expected NotInitialized, got %v", err)
	}
}

func TestLockIsStablePerUnit(t *testing.T) {
	r := New()
	id, _ := r.CreateUnit("acme", "alice", false, false)
	l1 := r.Lock(id)
	l2 := r.Lock(id)
	if l1 != l2 {
		t.Fatal("expected Lock to return the same mutex for repeated calls on one unit")
	}
}
