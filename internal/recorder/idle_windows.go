//go:build windows

package recorder

import "github.com/jgcoded/duplicast/internal/gpucore"

const (
	esContinuous       = 0x80000000
	esSystemRequired   = 0x00000001
	esDisplayRequired  = 0x00000002
	esAwayModeRequired = 0x00000040
)

var procSetThreadExecutionState = gpucore.Kernel32.NewProc("SetThreadExecutionState")

// preventIdleSleep disables display/system idle timeout and enables away
// mode for the lifetime of the recording, per spec §4.8 step 2.
func preventIdleSleep() {
	procSetThreadExecutionState.Call(uintptr(esContinuous | esSystemRequired | esDisplayRequired | esAwayModeRequired))
}

// restoreIdleSleep releases the execution-state override, allowing normal
// idle/sleep behavior to resume.
func restoreIdleSleep() {
	procSetThreadExecutionState.Call(uintptr(esContinuous))
}
