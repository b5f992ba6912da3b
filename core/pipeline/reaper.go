package pipeline

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Reaper collects exit statuses of background stages so no terminated child
// is ever forgotten. Termination notifications arrive as SIGCHLD; a single
// notification can stand for several simultaneous exits, so every
// notification triggers a full non-blocking sweep of the tracked set.
//
// The sweep itself only records reaped PIDs onto a buffered channel; all
// reporting happens on the consumer's schedule.
type Reaper struct {
	mu      sync.Mutex
	tracked map[int]struct{}

	done chan int
	sigs chan os.Signal
	kick chan struct{}
	stop chan struct{}
}

func NewReaper() *Reaper {
	return &Reaper{
		tracked: make(map[int]struct{}),
		done:    make(chan int, 128),
		sigs:    make(chan os.Signal, 1),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// Start begins observing child terminations.
func (r *Reaper) Start() {
	signal.Notify(r.sigs, syscall.SIGCHLD)
	go r.loop()
}

// Stop ends observation. Tracked but unreaped processes stay unreaped.
func (r *Reaper) Stop() {
	signal.Stop(r.sigs)
	close(r.stop)
}

// Track registers a background PID for reaping.
func (r *Reaper) Track(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked[pid] = struct{}{}
}

// TrackedCount returns the number of registered, not yet reaped processes.
func (r *Reaper) TrackedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tracked)
}

// Kick forces a sweep, covering terminations whose SIGCHLD fired before the
// PID was tracked.
func (r *Reaper) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Done delivers each reaped PID exactly once.
func (r *Reaper) Done() <-chan int {
	return r.done
}

func (r *Reaper) loop() {
	for {
		select {
		case <-r.stop:
			return
		case <-r.sigs:
		case <-r.kick:
		}
		r.sweep()
	}
}

// sweep collects every currently terminated, not-yet-reaped tracked child.
// Waits are per-PID and non-blocking so a foreground child being waited on
// elsewhere can never be stolen here.
func (r *Reaper) sweep() {
	r.mu.Lock()
	var reaped []int
	for pid := range r.tracked {
		var status syscall.WaitStatus
		wpid, err := syscall.Wait4(pid, &status, syscall.WNOHANG, nil)
		for err == syscall.EINTR {
			wpid, err = syscall.Wait4(pid, &status, syscall.WNOHANG, nil)
		}
		switch {
		case err == syscall.ECHILD:
			// Already collected elsewhere; nothing left to wait for.
			delete(r.tracked, pid)
			reaped = append(reaped, pid)
		case err != nil:
			// Transient failure; keep tracking and retry on the next sweep.
		case wpid == pid:
			delete(r.tracked, pid)
			reaped = append(reaped, pid)
		}
	}
	r.mu.Unlock()

	for _, pid := range reaped {
		r.done <- pid
	}
}
