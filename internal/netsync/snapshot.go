// Package netsync carries weapon state between the authoritative server and
// its clients: a compact per-tick snapshot and a small set of reliable events.
package netsync

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// DefaultClipBits is the width of the clip count field when not configured.
const DefaultClipBits = 7

// WeaponState is the replicated part of one weapon, written every snapshot.
type WeaponState struct {
	// Clip is the number of rounds in the clip.
	Clip int
	// WorldModel is the spawn id of the third person model, 0 when none.
	WorldModel uint32
	LightOn    bool
	Firing     bool
}

// ClipMax returns the largest clip count representable in bits.
func ClipMax(bits int) int {
	return 1<<uint(bits) - 1
}

func checkClipBits(op string, bits int) {
	if bits < 1 || bits > 31 {
		panic(fmt.Sprintf("netsync: %s: clip bits must be in [1, 31], got %d", op, bits))
	}
}

// Encoder packs weapon states into a bit stream.
// An Encoder is not safe for concurrent use.
type Encoder struct {
	buf      bytes.Buffer
	w        *bitio.Writer
	clipBits uint8
	closed   bool
}

// NewEncoder returns an Encoder writing clip counts with clipBits bits.
//
// Precondition: 1 <= clipBits <= 31 (panics otherwise).
func NewEncoder(clipBits int) *Encoder {
	checkClipBits("NewEncoder", clipBits)
	e := &Encoder{clipBits: uint8(clipBits)}
	e.w = bitio.NewWriter(&e.buf)
	return e
}

// WriteWeapon appends s to the stream. Clip counts outside
// [0, ClipMax(clipBits)] are clamped.
//
// Precondition: Bytes has not been called.
func (e *Encoder) WriteWeapon(s WeaponState) {
	if e.closed {
		panic("netsync: Encoder.WriteWeapon: encoder already flushed")
	}
	clip := s.Clip
	if clip < 0 {
		clip = 0
	}
	if max := ClipMax(int(e.clipBits)); clip > max {
		clip = max
	}
	e.w.TryWriteBits(uint64(clip), e.clipBits)
	e.w.TryWriteBits(uint64(s.WorldModel), 32)
	e.w.TryWriteBool(s.LightOn)
	e.w.TryWriteBool(s.Firing)
}

// Bytes flushes the stream and returns the packed snapshot.
//
// Postcondition: the Encoder accepts no further writes.
func (e *Encoder) Bytes() ([]byte, error) {
	if !e.closed {
		e.closed = true
		if err := e.w.Close(); err != nil {
			return nil, fmt.Errorf("netsync: Encoder.Bytes: %w", err)
		}
	}
	if e.w.TryError != nil {
		return nil, fmt.Errorf("netsync: Encoder.Bytes: %w", e.w.TryError)
	}
	return e.buf.Bytes(), nil
}

// Decoder unpacks weapon states written by an Encoder with the same clip width.
type Decoder struct {
	r        *bitio.Reader
	clipBits uint8
}

// NewDecoder returns a Decoder over data.
//
// Precondition: 1 <= clipBits <= 31 (panics otherwise).
func NewDecoder(data []byte, clipBits int) *Decoder {
	checkClipBits("NewDecoder", clipBits)
	return &Decoder{r: bitio.NewReader(bytes.NewReader(data)), clipBits: uint8(clipBits)}
}

// ReadWeapon reads the next weapon state.
//
// Postcondition: returns an error when the stream is truncated.
func (d *Decoder) ReadWeapon() (WeaponState, error) {
	clip := d.r.TryReadBits(d.clipBits)
	model := d.r.TryReadBits(32)
	light := d.r.TryReadBool()
	firing := d.r.TryReadBool()
	if d.r.TryError != nil {
		return WeaponState{}, fmt.Errorf("netsync: Decoder.ReadWeapon: %w", d.r.TryError)
	}
	return WeaponState{
		Clip:       int(clip),
		WorldModel: uint32(model),
		LightOn:    light,
		Firing:     firing,
	}, nil
}
