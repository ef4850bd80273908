//go:build !windows

package recorder

func preventIdleSleep()  {}
func restoreIdleSleep() {}
