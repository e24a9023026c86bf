package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/dice"
	"github.com/cory-johannsen/armory/internal/game/world"
)

// GlobalKey is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no arena VM is found.
const GlobalKey = "__global__"

// DamageHookName is the Lua global the arena calls for every damaging impact:
//
//	on_damage(projectile, target, damage) -> damage
const DamageHookName = "on_damage"

// vm is one LState and the lock serializing calls into it.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per arena and dispatches hooks to them.
//
// Manager is safe for concurrent use. Calls into the same VM are serialized.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a Manager with no VMs.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil || logger == nil {
		panic("scripting: NewManager: roller and logger must be non-nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger.Named("scripting"),
	}
}

// LoadArena creates a VM for arenaID and executes every *.lua file in
// scriptDir in lexicographic order. A previous VM for arenaID is replaced.
//
// Precondition: arenaID must be non-empty; limit >= 0 (0 uses DefaultInstructionLimit).
// Postcondition: the VM is registered, or an error is returned and nothing changes.
func (m *Manager) LoadArena(arenaID, scriptDir string, limit int) error {
	return m.loadInto(arenaID, scriptDir, limit)
}

// LoadGlobal creates the shared VM used when an arena has no scripts of its own.
func (m *Manager) LoadGlobal(scriptDir string, limit int) error {
	return m.loadInto(GlobalKey, scriptDir, limit)
}

func (m *Manager) loadInto(key, scriptDir string, limit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	L := NewSandboxedState()
	m.RegisterModules(L, key)
	for _, path := range files {
		if err := limited(L, limit, func() error { return L.DoFile(path) }); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, limit: limit}
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.logger.Info("scripts loaded", zap.String("key", key), zap.Int("files", len(files)))
	return nil
}

// Has reports whether a VM is registered for key.
func (m *Manager) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[key]
	return ok
}

// CallHook calls the named Lua global in key's VM, falling back to the global
// VM. Returns LNil when no VM exists or the hook is undefined. Lua runtime
// errors, including running out of instructions, are logged at Warn and
// yield LNil.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(key, hook string, args ...lua.LValue) lua.LValue {
	m.mu.RLock()
	v, ok := m.vms[key]
	if !ok {
		v = m.vms[GlobalKey]
	}
	m.mu.RUnlock()
	if v == nil {
		return lua.LNil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.L.IsClosed() {
		return lua.LNil
	}
	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil
	}
	err := limited(v.L, v.limit, func() error {
		return v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		m.logger.Warn("lua runtime error", zap.String("key", key), zap.String("hook", hook), zap.Error(err))
		return lua.LNil
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret
}

// DamageHook adapts the on_damage hook of arenaID into a world.DamageHook.
// A hook that is missing, fails or returns a non-number leaves the damage as
// rolled; a negative result is clamped to zero.
func (m *Manager) DamageHook(arenaID string) world.DamageHook {
	return func(hit world.DamageHit) int {
		ret := m.CallHook(arenaID, DamageHookName,
			lua.LString(hit.Projectile), lua.LString(hit.Target), lua.LNumber(hit.Damage))
		n, ok := ret.(lua.LNumber)
		if !ok {
			return hit.Damage
		}
		return int(math.Max(0, math.Round(float64(n))))
	}
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
