package supervisor

import "syscall"

// The kernel sends SIGTERM to a worker whose daemon dies without shutting the
// pool down, so orphans stop claiming jobs.
func workerSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true, Pdeathsig: syscall.SIGTERM}
}
