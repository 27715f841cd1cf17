//go:build windows

package main

import "os"

// Windows 没有 SIGUSR1，只支持 Ctrl+C 停止
func pauseSignals() []os.Signal {
	return nil
}
