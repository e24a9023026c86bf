package weapon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/netsync"
)

// SnapshotState returns the replicated part of the weapon.
func (w *Weapon) SnapshotState() netsync.WeaponState {
	var model uint32
	if id, ok := w.worldModel.Get(); ok {
		model = uint32(id)
	}
	return netsync.WeaponState{
		Clip:       w.ammoClip,
		WorldModel: model,
		LightOn:    w.lightOn,
		Firing:     w.isFiring,
	}
}

// WriteSnapshot appends the weapon to enc.
func (w *Weapon) WriteSnapshot(enc *netsync.Encoder) {
	enc.WriteWeapon(w.SnapshotState())
}

// ReadSnapshot decodes the next weapon state from dec and applies it.
func (w *Weapon) ReadSnapshot(dec *netsync.Decoder) error {
	s, err := dec.ReadWeapon()
	if err != nil {
		return fmt.Errorf("weapon: ReadSnapshot: %w", err)
	}
	w.ApplySnapshot(s)
	return nil
}

// ApplySnapshot reconciles the weapon with authoritative state.
//
// The clip is clamped to the clip size and the world model is taken as is.
// For an owner this peer does not control, the firing flag drives the state
// machine: a rising edge requests FIRE and a falling edge requests IDLE. A light flag that differs from the
// local one is read as a reload signal. The local light flag is not changed.
func (w *Weapon) ApplySnapshot(s netsync.WeaponState) {
	w.ammoClip = max(s.Clip, 0)
	if w.clipSize > 0 {
		w.ammoClip = min(w.ammoClip, w.clipSize)
	}
	w.clipUnknown = false
	if s.WorldModel != 0 {
		w.worldModel = Some(int32(s.WorldModel))
	} else {
		w.worldModel = None[int32]()
	}

	if w.owner == nil || !w.owner.IsLocal() {
		switch {
		case s.Firing && !w.netFiring:
			w.idealState = StateFire
		case !s.Firing && w.netFiring:
			w.idealState = StateIdle
		}
		w.isFiring = s.Firing
	}
	w.netFiring = s.Firing

	if s.LightOn != w.lightOn {
		w.log.Debug("light flag mismatch, reloading")
		w.deps.Metrics.ReloadSignal(context.Background(), w.Name())
		w.Reload()
	}
}

func eventChangeSkin(skin string, now time.Duration) netsync.Event {
	return netsync.Event{Kind: netsync.EventChangeSkin, Time: now, Skin: skin}
}

func (w *Weapon) sendEvent(ev netsync.Event) {
	w.deps.Events.SendEvent(ev)
}

// NetReload tells clients a reload started. Only the server sends.
func (w *Weapon) NetReload() {
	if w.isClient() {
		return
	}
	w.sendEvent(netsync.Event{Kind: netsync.EventReload, Time: w.now()})
}

// NetEndReload tells clients a reload finished. Only the server sends.
func (w *Weapon) NetEndReload() {
	if w.isClient() {
		return
	}
	w.sendEvent(netsync.Event{Kind: netsync.EventEndReload, Time: w.now()})
}

// ReceiveEvent applies a reliable event from the server and reports whether
// it was understood. Reload events older than the reload event window are
// ignored.
func (w *Weapon) ReceiveEvent(ev netsync.Event) bool {
	switch ev.Kind {
	case netsync.EventReload:
		if w.now()-ev.Time < w.deps.Policy.ReloadEventWindow {
			w.netReload = true
			w.netEndReload = false
		}
		return true
	case netsync.EventEndReload:
		w.netEndReload = true
		return true
	case netsync.EventChangeSkin:
		w.deps.Presenter.SetSkin(ev.Skin)
		return true
	}
	w.log.Warn("unknown weapon event", zap.Stringer("kind", ev.Kind))
	return false
}

// TakeNetReload reports and clears a pending server reload.
func (w *Weapon) TakeNetReload() bool {
	r := w.netReload
	w.netReload = false
	return r
}

// TakeNetEndReload reports and clears a pending server end of reload.
func (w *Weapon) TakeNetEndReload() bool {
	r := w.netEndReload
	w.netEndReload = false
	return r
}
