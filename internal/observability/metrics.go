package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/cory-johannsen/armory/internal/observability"

// WeaponMetrics counts weapon activity. The zero value and a nil pointer are
// both usable and record nothing.
type WeaponMetrics struct {
	projectilesLaunched metric.Int64Counter
	ammoConsumed        metric.Int64Counter
	meleeSwings         metric.Int64Counter
	meleeHits           metric.Int64Counter
	reloadSignals       metric.Int64Counter
}

// NewWeaponMetrics creates the weapon counters on m. When m is nil the global
// OTel meter is used, which is a no-op until a provider is installed.
//
// Postcondition: Returns usable metrics or a non-nil error.
func NewWeaponMetrics(m metric.Meter) (*WeaponMetrics, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	wm := &WeaponMetrics{}
	var err error

	wm.projectilesLaunched, err = m.Int64Counter(
		"armory.projectiles.launched",
		metric.WithDescription("Projectiles launched or predicted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating projectiles counter: %w", err)
	}

	wm.ammoConsumed, err = m.Int64Counter(
		"armory.ammo.consumed",
		metric.WithDescription("Ammunition units taken from inventories"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ammo counter: %w", err)
	}

	wm.meleeSwings, err = m.Int64Counter(
		"armory.melee.swings",
		metric.WithDescription("Melee traces performed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating melee swing counter: %w", err)
	}

	wm.meleeHits, err = m.Int64Counter(
		"armory.melee.hits",
		metric.WithDescription("Melee traces that damaged a target"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating melee hit counter: %w", err)
	}

	wm.reloadSignals, err = m.Int64Counter(
		"armory.reload.signals",
		metric.WithDescription("Reloads requested by snapshot light-flag mismatches"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reload signal counter: %w", err)
	}

	return wm, nil
}

// ProjectilesLaunched records n projectiles for weapon.
func (wm *WeaponMetrics) ProjectilesLaunched(ctx context.Context, weapon string, n int, predicted bool) {
	if wm == nil || wm.projectilesLaunched == nil {
		return
	}
	wm.projectilesLaunched.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("weapon", weapon),
		attribute.Bool("predicted", predicted),
	))
}

// AmmoConsumed records amount units of ammo taken for weapon.
func (wm *WeaponMetrics) AmmoConsumed(ctx context.Context, weapon string, amount int) {
	if wm == nil || wm.ammoConsumed == nil || amount <= 0 {
		return
	}
	wm.ammoConsumed.Add(ctx, int64(amount), metric.WithAttributes(attribute.String("weapon", weapon)))
}

// MeleeSwing records a melee trace and whether it hit.
func (wm *WeaponMetrics) MeleeSwing(ctx context.Context, weapon string, hit bool) {
	if wm == nil || wm.meleeSwings == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("weapon", weapon))
	wm.meleeSwings.Add(ctx, 1, attrs)
	if hit {
		wm.meleeHits.Add(ctx, 1, attrs)
	}
}

// ReloadSignal records a desync-triggered reload.
func (wm *WeaponMetrics) ReloadSignal(ctx context.Context, weapon string) {
	if wm == nil || wm.reloadSignals == nil {
		return
	}
	wm.reloadSignals.Add(ctx, 1, metric.WithAttributes(attribute.String("weapon", weapon)))
}
