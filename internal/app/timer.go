package app

import "time"

// TimerHandle is the cancellation token for an armed deadline. Cancel is
// best-effort: it may race with the timer firing, in which case the fired
// callback finds no live session and becomes a no-op.
type TimerHandle interface {
	Cancel() bool
}

// TimerService schedules a one-shot wake-up at a future instant.
type TimerService interface {
	Arm(d time.Duration, fn func()) TimerHandle
}

// WallTimers is the production TimerService backed by time.AfterFunc.
type WallTimers struct{}

func NewWallTimers() WallTimers {
	return WallTimers{}
}

func (WallTimers) Arm(d time.Duration, fn func()) TimerHandle {
	return wallTimer{timer: time.AfterFunc(d, fn)}
}

type wallTimer struct {
	timer *time.Timer
}

func (w wallTimer) Cancel() bool {
	return w.timer.Stop()
}
