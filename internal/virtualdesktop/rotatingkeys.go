// Package virtualdesktop implements the shared composite surface that every
// monitor's Pipeline renders into: the keyed-mutex-guarded texture and the
// RotatingKeys bookkeeping that lets producer and consumer swap acquire/
// release keys without a CPU-side mutex.
package virtualdesktop

// RotatingKeys tracks the pair of keyed-mutex key values a VirtualDesktop
// lock cycles through. Each lock acquires with the current acquire key and,
// on unlock, releases with the current release key before rotating the two
// so the next cycle's acquire key is this cycle's release key.
//
// This is a direct port of the original KeyedMutexLock.h RotatingKeys idiom:
// a lock call is legal only if it uses the key the previous unlock released.
type RotatingKeys struct {
	acquire uint64
	release uint64
}

// NewRotatingKeys returns the default rotation start state, acquire=0,
// release=1, matching the original's default constructor.
func NewRotatingKeys() *RotatingKeys {
	return &RotatingKeys{acquire: 0, release: 1}
}

// NewRotatingKeysFrom returns a RotatingKeys seeded at a specific pair,
// for tests and for resuming a rotation at a known point.
func NewRotatingKeysFrom(acquire, release uint64) *RotatingKeys {
	return &RotatingKeys{acquire: acquire, release: release}
}

// AcquireKey returns the key value the next lock must acquire with.
func (k *RotatingKeys) AcquireKey() uint64 { return k.acquire }

// ReleaseKey returns the key value the current lock holder must release
// with.
func (k *RotatingKeys) ReleaseKey() uint64 { return k.release }

// Rotate swaps the release key into the acquire position, so the next lock
// cycle acquires what this cycle just released.
func (k *RotatingKeys) Rotate() {
	k.acquire, k.release = k.release, k.acquire
}
