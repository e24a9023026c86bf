package inventory_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/armory/internal/game/inventory"
)

const bullets inventory.AmmoType = 1

func TestAmmoPouch_HasAmmo_NoneIsUnlimited(t *testing.T) {
	p := inventory.NewAmmoPouch()
	assert.Equal(t, inventory.Unlimited, p.HasAmmo(inventory.AmmoNone, 1))
	assert.Equal(t, inventory.Unlimited, p.HasAmmo(bullets, 0))
}

func TestAmmoPouch_HasAmmo_DividesByRequirement(t *testing.T) {
	p := inventory.NewAmmoPouch()
	p.Give(bullets, 7)
	assert.Equal(t, 7, p.HasAmmo(bullets, 1))
	assert.Equal(t, 3, p.HasAmmo(bullets, 2))
	assert.Equal(t, 0, p.HasAmmo(bullets, 8))
}

func TestAmmoPouch_UseAmmo(t *testing.T) {
	p := inventory.NewAmmoPouch()
	p.Give(bullets, 5)
	require.True(t, p.UseAmmo(bullets, 3))
	assert.Equal(t, 2, p.Count(bullets))
	assert.False(t, p.UseAmmo(bullets, 3), "insufficient ammo must be refused")
	assert.Equal(t, 2, p.Count(bullets), "refused use must not change the count")
	assert.True(t, p.UseAmmo(inventory.AmmoNone, 100))
}

func TestAmmoPouch_LimitCapsGive(t *testing.T) {
	p := inventory.NewAmmoPouch()
	p.SetLimit(bullets, 10)
	assert.Equal(t, 8, p.Give(bullets, 8))
	assert.Equal(t, 2, p.Give(bullets, 8))
	assert.Equal(t, 10, p.Count(bullets))

	p.SetLimit(bullets, 4)
	assert.Equal(t, 4, p.Count(bullets), "lowering the limit trims the count")
}

func TestAmmoPouch_Give_PanicsOnNegative(t *testing.T) {
	p := inventory.NewAmmoPouch()
	assert.Panics(t, func() { p.Give(bullets, -1) })
}

func TestAmmoPouch_ConcurrentUse(t *testing.T) {
	p := inventory.NewAmmoPouch()
	p.Give(bullets, 1000)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.UseAmmo(bullets, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, p.Count(bullets))
}

func TestProperty_AmmoPouch_CountNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := inventory.NewAmmoPouch()
		limit := rapid.IntRange(0, 200).Draw(rt, "limit")
		p.SetLimit(bullets, limit)
		ops := rapid.SliceOfN(rapid.IntRange(-50, 50), 1, 40).Draw(rt, "ops")
		for _, op := range ops {
			if op >= 0 {
				p.Give(bullets, op)
			} else {
				p.UseAmmo(bullets, -op)
			}
			c := p.Count(bullets)
			if c < 0 {
				rt.Fatalf("count went negative: %d", c)
			}
			if limit > 0 && c > limit {
				rt.Fatalf("count %d exceeds limit %d", c, limit)
			}
		}
	})
}

func TestProperty_AmmoPouch_HasAmmoMatchesCount(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := inventory.NewAmmoPouch()
		n := rapid.IntRange(0, 500).Draw(rt, "n")
		req := rapid.IntRange(1, 10).Draw(rt, "req")
		p.Give(bullets, n)
		if got, want := p.HasAmmo(bullets, req), n/req; got != want {
			rt.Fatalf("HasAmmo(%d) with %d held = %d, want %d", req, n, got, want)
		}
	})
}
