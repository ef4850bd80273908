package virtualdesktop

import "testing"

func TestRotatingKeysDefaultStart(t *testing.T) {
	k := NewRotatingKeys()
	if k.AcquireKey() != 0 || k.ReleaseKey() != 1 {
		t.Fatalf("want acquire=0 release=1, got acquire=%d release=%d", k.AcquireKey(), k.ReleaseKey())
	}
}

func TestRotatingKeysRotateSwapsReleaseIntoAcquire(t *testing.T) {
	k := NewRotatingKeys()
	prevRelease := k.ReleaseKey()
	k.Rotate()
	if k.AcquireKey() != prevRelease {
		t.Fatalf("want next acquire key to be previous release key %d, got %d", prevRelease, k.AcquireKey())
	}
}

func TestRotatingKeysRoundTripAfterTwoRotations(t *testing.T) {
	k := NewRotatingKeysFrom(5, 9)
	k.Rotate()
	k.Rotate()
	if k.AcquireKey() != 5 || k.ReleaseKey() != 9 {
		t.Fatalf("two rotations should be idempotent, got acquire=%d release=%d", k.AcquireKey(), k.ReleaseKey())
	}
}

func TestLockGuardUnlockIsIdempotent(t *testing.T) {
	keys := NewRotatingKeysFrom(0, 1)
	calls := 0
	g := &LockGuard{keys: keys, release: func(key uint64) error {
		calls++
		if key != 1 {
			t.Fatalf("expected release with key 1, got %d", key)
		}
		return nil
	}}
	if err := g.Unlock(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Unlock(); err != nil {
		t.Fatalf("second unlock should be a no-op, got error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("want release called once, got %d", calls)
	}
	if keys.AcquireKey() != 1 || keys.ReleaseKey() != 0 {
		t.Fatalf("want keys rotated after unlock, got acquire=%d release=%d", keys.AcquireKey(), keys.ReleaseKey())
	}
}

func TestNilLockGuardUnlockIsNoOp(t *testing.T) {
	var g *LockGuard
	if err := g.Unlock(); err != nil {
		t.Fatalf("nil guard unlock should be a no-op, got: %v", err)
	}
}
