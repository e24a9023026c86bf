// Package presentation provides a weapon.Presenter that renders nothing and
// records presentation requests to a structured log. Headless servers and
// tools use it where a renderer would sit.
package presentation

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/geom"
	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/weapon"
)

// Joint names every weapon model is assumed to carry.
var (
	viewJoints  = []string{"barrel", "flash", "eject", "guiLight", "ventLight"}
	worldJoints = []string{"flash", "muzzle", "eject"}
)

// jointOffsets places each joint relative to the model origin, in model axis space.
var jointOffsets = map[string]mgl64.Vec3{
	"barrel":    {16, -4, -4},
	"flash":     {18, -4, -4},
	"muzzle":    {18, 0, 0},
	"eject":     {8, -6, -2},
	"guiLight":  {4, -6, 0},
	"ventLight": {6, -4, 2},
}

// Stats counts presentation requests.
type Stats struct {
	Anims     int
	Sounds    int
	Flashes   int
	Decals    int
	Particles int
}

// LogPresenter is a headless weapon.Presenter. Animation lengths come from
// the definition; joints are fixed offsets from the last transform.
type LogPresenter struct {
	mu      sync.Mutex
	log     *zap.Logger
	def     *inventory.WeaponDef
	origin  mgl64.Vec3
	axis    mgl64.Mat3
	visible map[weapon.ModelKind]bool
	skin    string
	joints  map[weapon.ModelKind]map[string]weapon.JointHandle
	names   map[weapon.JointHandle]string
	stats   Stats
}

// NewLogPresenter returns a presenter that logs to logger at debug level.
//
// Precondition: logger must be non-nil.
func NewLogPresenter(logger *zap.Logger) *LogPresenter {
	p := &LogPresenter{
		log:     logger.Named("presentation"),
		axis:    mgl64.Ident3(),
		visible: make(map[weapon.ModelKind]bool),
		joints:  make(map[weapon.ModelKind]map[string]weapon.JointHandle),
		names:   make(map[weapon.JointHandle]string),
	}
	next := weapon.JointHandle(1)
	for _, m := range []struct {
		kind  weapon.ModelKind
		names []string
	}{{weapon.ViewModel, viewJoints}, {weapon.WorldModel, worldJoints}} {
		p.joints[m.kind] = make(map[string]weapon.JointHandle, len(m.names))
		for _, n := range m.names {
			p.joints[m.kind][n] = next
			p.names[next] = n
			next++
		}
	}
	return p
}

func (p *LogPresenter) SetDefinition(def *inventory.WeaponDef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.def = def
	if def != nil {
		p.log.Debug("models attached", zap.String("weapon", def.ID))
	}
}

func (p *LogPresenter) PlayAnim(channel weapon.AnimChannel, anim string, blendFrames int, cycle bool) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.def == nil {
		return 0, false
	}
	length, ok := p.def.AnimLength(anim)
	if !ok {
		return 0, false
	}
	p.stats.Anims++
	p.log.Debug("anim",
		zap.String("weapon", p.def.ID),
		zap.String("anim", anim),
		zap.Int("channel", int(channel)),
		zap.Int("blend", blendFrames),
		zap.Bool("cycle", cycle),
		zap.Duration("length", length),
	)
	return length, true
}

func (p *LogPresenter) StartSound(channel weapon.SoundChannel, shader string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Sounds++
	p.log.Debug("sound", zap.Int("channel", int(channel)), zap.String("shader", shader))
}

func (p *LogPresenter) StopSound(channel weapon.SoundChannel) {
	p.log.Debug("sound stopped", zap.Int("channel", int(channel)))
}

func (p *LogPresenter) SetTransform(origin mgl64.Vec3, axis mgl64.Mat3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.origin, p.axis = origin, axis
}

func (p *LogPresenter) MuzzleFlash(origin, color mgl64.Vec3, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if on {
		p.stats.Flashes++
	}
	p.log.Debug("muzzle flash", zap.Bool("on", on), zap.Float64s("origin", origin[:]), zap.Float64s("color", color[:]))
}

func (p *LogPresenter) ProjectDecal(origin, _ mgl64.Vec3, depth float64, material string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Decals++
	p.log.Debug("decal", zap.String("material", material), zap.Float64s("origin", origin[:]), zap.Float64("depth", depth))
}

func (p *LogPresenter) EmitParticle(name string, origin mgl64.Vec3, _ mgl64.Mat3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Particles++
	p.log.Debug("particle", zap.String("name", name), zap.Float64s("origin", origin[:]))
}

func (p *LogPresenter) Joint(model weapon.ModelKind, name string) (weapon.JointHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.joints[model][name]
	return h, ok
}

// JointTransform places the joint at its fixed offset from the last transform.
func (p *LogPresenter) JointTransform(_ weapon.ModelKind, joint weapon.JointHandle) (mgl64.Vec3, mgl64.Mat3, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name, ok := p.names[joint]
	if !ok {
		return mgl64.Vec3{}, mgl64.Mat3{}, false
	}
	return geom.LocalToWorld(p.origin, p.axis, jointOffsets[name]), p.axis, true
}

func (p *LogPresenter) SetVisible(model weapon.ModelKind, visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[model] = visible
}

func (p *LogPresenter) SetSkin(skin string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skin = skin
	p.log.Debug("skin", zap.String("skin", skin))
}

// Visible reports whether model is shown.
func (p *LogPresenter) Visible(model weapon.ModelKind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[model]
}

// Skin returns the last skin set.
func (p *LogPresenter) Skin() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skin
}

// Transform returns the last weapon transform.
func (p *LogPresenter) Transform() (mgl64.Vec3, mgl64.Mat3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.origin, p.axis
}

// Stats returns the request counters.
func (p *LogPresenter) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

var _ weapon.Presenter = (*LogPresenter)(nil)
