package weapon

import (
	"context"

	"github.com/cory-johannsen/armory/internal/game/inventory"
)

func (w *Weapon) inventory() Inventory {
	if w.owner == nil {
		return nil
	}
	return w.owner.Inventory()
}

// AmmoAvailable returns how many shots the owner's inventory can feed, or
// inventory.Unlimited for weapons that need no ammunition.
//
// Postcondition: returns 0 when the weapon has no owner or the owner no inventory.
func (w *Weapon) AmmoAvailable() int {
	inv := w.inventory()
	if inv == nil {
		return 0
	}
	return inv.HasAmmo(w.ammoType, w.ammoRequired)
}

// TotalAmmoCount returns the raw units of this weapon's ammo type held.
func (w *Weapon) TotalAmmoCount() int {
	inv := w.inventory()
	if inv == nil {
		return 0
	}
	return inv.HasAmmo(w.ammoType, 1)
}

// UseAmmo consumes shots from the inventory and the clip. Power ammo weapons
// consume shots units directly; others consume shots*ammo_required.
// Clients do not consume ammunition.
//
// Postcondition: 0 <= AmmoInClip() on return.
func (w *Weapon) UseAmmo(shots int) {
	if w.isClient() {
		return
	}
	inv := w.inventory()
	if inv == nil {
		return
	}
	amount := shots
	if !w.powerAmmo {
		amount = shots * w.ammoRequired
	}
	if amount > 0 && inv.UseAmmo(w.ammoType, amount) {
		w.deps.Metrics.AmmoConsumed(context.Background(), w.Name(), amount)
	}
	if w.clipSize > 0 && w.ammoRequired > 0 {
		w.ammoClip -= amount
		if w.ammoClip < 0 {
			w.ammoClip = 0
		}
		w.clipUnknown = false
	}
}

// AddToClip loads amount rounds. Clients do not load rounds.
//
// Postcondition: 0 <= AmmoInClip() <= min(ClipSize(), AmmoAvailable()).
func (w *Weapon) AddToClip(amount int) {
	if w.isClient() {
		return
	}
	w.ammoClip += amount
	w.clipUnknown = false
	if w.ammoClip > w.clipSize {
		w.ammoClip = w.clipSize
	}
	if avail := w.AmmoAvailable(); w.ammoClip > avail {
		w.ammoClip = avail
	}
	if w.ammoClip < 0 {
		w.ammoClip = 0
	}
}

// AmmoInClip returns the rounds in the clip.
func (w *Weapon) AmmoInClip() int { return w.ammoClip }

// ClipCount returns the clip count, absent after ResetAmmoClip.
func (w *Weapon) ClipCount() Optional[int] {
	if w.clipUnknown {
		return None[int]()
	}
	return Some(w.ammoClip)
}

// ResetAmmoClip forgets the clip count so the next Equip refills it.
func (w *Weapon) ResetAmmoClip() {
	w.ammoClip = 0
	w.clipUnknown = true
}

// ClipSize returns the clip capacity, 0 for weapons without a clip.
func (w *Weapon) ClipSize() int { return w.clipSize }

// LowAmmo returns the clip count at which the HUD warns.
func (w *Weapon) LowAmmo() int { return w.lowAmmo }

// AmmoRequired returns the units one shot consumes.
func (w *Weapon) AmmoRequired() int { return w.ammoRequired }

// AmmoType returns the ammunition type the weapon draws from.
func (w *Weapon) AmmoType() inventory.AmmoType { return w.ammoType }

// IsPowerAmmo reports whether shot cost scales with damage power.
func (w *Weapon) IsPowerAmmo() bool { return w.powerAmmo }

// CanFire reports whether a shot can be fed: ammunition is available and a
// clip weapon has a round loaded.
func (w *Weapon) CanFire() bool {
	if w.AmmoAvailable() <= 0 {
		return false
	}
	return w.clipSize == 0 || w.ammoClip > 0
}
