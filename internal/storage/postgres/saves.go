package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/blake2b"
)

// MaxOwnerLen is the longest owner name a save slot accepts.
const MaxOwnerLen = 64

var (
	// ErrSaveNotFound is returned when no save occupies the requested slot.
	ErrSaveNotFound = errors.New("weapon save not found")
	// ErrSaveCorrupt is returned when stored data no longer matches its checksum.
	ErrSaveCorrupt = errors.New("weapon save checksum mismatch")
	// ErrInvalidSave is returned when a save is rejected before reaching the database.
	ErrInvalidSave = errors.New("invalid weapon save")
)

// WeaponSave is one encoded weapon in a save slot.
type WeaponSave struct {
	ID       uuid.UUID
	Owner    string
	Slot     int
	WeaponID string
	// Data is the savegame encoding of the weapon.
	Data     []byte
	Checksum []byte
	// GameTime is the simulation time the save was taken at.
	GameTime time.Duration
	SavedAt  time.Time
}

// Checksum returns the BLAKE2b-256 digest of data.
func Checksum(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// Validate checks the fields a caller supplies.
func (s WeaponSave) Validate() error {
	switch {
	case s.Owner == "":
		return fmt.Errorf("%w: owner must not be empty", ErrInvalidSave)
	case len(s.Owner) > MaxOwnerLen:
		return fmt.Errorf("%w: owner longer than %d bytes", ErrInvalidSave, MaxOwnerLen)
	case s.Slot < 0:
		return fmt.Errorf("%w: slot must be >= 0, got %d", ErrInvalidSave, s.Slot)
	case s.WeaponID == "":
		return fmt.Errorf("%w: weapon ID must not be empty", ErrInvalidSave)
	case len(s.Data) == 0:
		return fmt.Errorf("%w: data must not be empty", ErrInvalidSave)
	case s.GameTime < 0:
		return fmt.Errorf("%w: game time must be >= 0", ErrInvalidSave)
	}
	return nil
}

// SaveRepository persists weapon saves keyed by owner and slot.
type SaveRepository struct {
	db *pgxpool.Pool
}

// NewSaveRepository creates a SaveRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewSaveRepository(db *pgxpool.Pool) *SaveRepository {
	return &SaveRepository{db: db}
}

// Put writes s into its owner's slot, replacing any save already there. The
// slot keeps its ID across overwrites.
//
// Postcondition: Returns the stored save with ID, Checksum and SavedAt set,
// or an error wrapping ErrInvalidSave.
func (r *SaveRepository) Put(ctx context.Context, s WeaponSave) (WeaponSave, error) {
	if err := s.Validate(); err != nil {
		return WeaponSave{}, err
	}
	s.Checksum = Checksum(s.Data)
	err := r.db.QueryRow(ctx,
		`INSERT INTO weapon_saves (id, owner, slot, weapon_id, data, checksum, game_time_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (owner, slot) DO UPDATE SET
		     weapon_id    = EXCLUDED.weapon_id,
		     data         = EXCLUDED.data,
		     checksum     = EXCLUDED.checksum,
		     game_time_ms = EXCLUDED.game_time_ms,
		     saved_at     = NOW()
		 RETURNING id, saved_at`,
		uuid.New(), s.Owner, s.Slot, s.WeaponID, s.Data, s.Checksum, s.GameTime.Milliseconds(),
	).Scan(&s.ID, &s.SavedAt)
	if err != nil {
		return WeaponSave{}, fmt.Errorf("postgres: Put %s/%d: %w", s.Owner, s.Slot, err)
	}
	return s, nil
}

// Get loads the save in owner's slot and verifies its checksum.
//
// Postcondition: Returns the save, ErrSaveNotFound, or an error wrapping ErrSaveCorrupt.
func (r *SaveRepository) Get(ctx context.Context, owner string, slot int) (WeaponSave, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, owner, slot, weapon_id, data, checksum, game_time_ms, saved_at
		 FROM weapon_saves WHERE owner = $1 AND slot = $2`,
		owner, slot,
	)
	s, err := scanSave(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WeaponSave{}, ErrSaveNotFound
		}
		return WeaponSave{}, fmt.Errorf("postgres: Get %s/%d: %w", owner, slot, err)
	}
	if !bytes.Equal(Checksum(s.Data), s.Checksum) {
		return WeaponSave{}, fmt.Errorf("postgres: Get %s/%d: %w", owner, slot, ErrSaveCorrupt)
	}
	return s, nil
}

// List returns owner's saves ordered by slot. Checksums are not verified.
func (r *SaveRepository) List(ctx context.Context, owner string) ([]WeaponSave, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner, slot, weapon_id, data, checksum, game_time_ms, saved_at
		 FROM weapon_saves WHERE owner = $1 ORDER BY slot`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: List %s: %w", owner, err)
	}
	defer rows.Close()

	var out []WeaponSave
	for rows.Next() {
		s, err := scanSave(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: List %s: %w", owner, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: List %s: %w", owner, err)
	}
	return out, nil
}

// Delete empties owner's slot.
//
// Postcondition: Returns ErrSaveNotFound if the slot was already empty.
func (r *SaveRepository) Delete(ctx context.Context, owner string, slot int) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM weapon_saves WHERE owner = $1 AND slot = $2`,
		owner, slot,
	)
	if err != nil {
		return fmt.Errorf("postgres: Delete %s/%d: %w", owner, slot, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSaveNotFound
	}
	return nil
}

func scanSave(row pgx.Row) (WeaponSave, error) {
	var (
		s      WeaponSave
		gameMS int64
	)
	if err := row.Scan(&s.ID, &s.Owner, &s.Slot, &s.WeaponID, &s.Data, &s.Checksum, &gameMS, &s.SavedAt); err != nil {
		return WeaponSave{}, err
	}
	s.GameTime = time.Duration(gameMS) * time.Millisecond
	return s, nil
}
