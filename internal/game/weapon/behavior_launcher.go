package weapon

import "go.uber.org/zap"

// Launcher is a firearm that keeps a projectile bound to the weapon while
// idle, so the next shot launches an already spawned entity.
type Launcher struct {
	Firearm
}

// NewLauncherBehavior returns the launcher behavior.
func NewLauncherBehavior(base *BehaviorBase) Behavior {
	return &Launcher{Firearm{BehaviorBase: base}}
}

func (l *Launcher) Idle() {
	w := l.w
	if !w.isClient() && w.pending == nil && w.projectile != nil && w.CanFire() {
		if _, err := w.CreateProjectile(); err != nil {
			w.log.Warn("pre-spawn failed", zap.Error(err))
		}
	}
	l.Firearm.Idle()
}
