package virtualdesktop

import "errors"

// ErrLockTimeout names a keyed-mutex lock timeout. Lock does not return
// it: a timeout is reported as ok == false with a nil error, and the
// caller skips the tick.
var ErrLockTimeout = errors.New("virtualdesktop: keyed mutex lock timed out")

// LockTimeoutMillis is the keyed-mutex acquire timeout, per spec §4.2 and
// the original's KeyedMutexLock construction (`AcquireSync(key, 10)`).
const LockTimeoutMillis = 10

// Bounds is the virtual desktop's extent in desktop coordinates: the union
// of every attached monitor's bounds.
type Bounds struct {
	Left, Top, Right, Bottom int32
}

func (b Bounds) Width() int32  { return b.Right - b.Left }
func (b Bounds) Height() int32 { return b.Bottom - b.Top }

// LockGuard represents one held keyed-mutex lock cycle. Calling Unlock
// releases with the current release key and rotates the keys for the next
// cycle, mirroring KeyedMutexLock's destructor.
type LockGuard struct {
	keys     *RotatingKeys
	release  func(key uint64) error
	unlocked bool
}

// Unlock releases the lock and rotates the keys. A second call is a no-op,
// as is a call on a nil guard (what Lock returns on a timeout).
func (g *LockGuard) Unlock() error {
	if g == nil || g.unlocked {
		return nil
	}
	g.unlocked = true
	releaseKey := g.keys.ReleaseKey()
	g.keys.Rotate()
	return g.release(releaseKey)
}
