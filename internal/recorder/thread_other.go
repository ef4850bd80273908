//go:build !windows

package recorder

import (
	"errors"

	"github.com/jgcoded/duplicast/internal/config"
)

// ErrUnsupportedPlatform is returned by NewThread on platforms without a
// desktop-duplication backend.
var ErrUnsupportedPlatform = errors.New("recorder: screen recording is not supported on this platform")

// NewThread always fails on non-Windows builds: desktop duplication is a
// DXGI-only capability.
func NewThread(cfg config.Config, notifier Notifier) (*Thread, error) {
	return nil, ErrUnsupportedPlatform
}
