//go:build !windows

package main

import (
	"os"
	"syscall"
)

// pauseSignals 批量分析时 kill -USR1 <pid> 切换暂停和继续
func pauseSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1}
}
