// Package groth16verify is the C4 Groth16Verifier component: a standalone
// Groth16/BN254 proof verifier that evaluates the pairing equation directly
// against a vendored VerifyingKey type, rather than depending on gnark's
// internal proof/VK representations at call time (§4.4). gnark's own
// frontend/groth16/mpcsetup machinery is still used on the setup side
// (setup.go) to produce genuine keys for circuits/membership; FromGnarkVK
// and FromGnarkProof bridge that output into this package's own types.
package groth16verify

import (
	"sync"

	"github.com/zkdao/corevote/pkg/corerr"
	"github.com/zkdao/corevote/pkg/field"
)

// VerifyingKey holds exactly the group elements the Groth16 pairing
// equation needs (§4.4). IC must have exactly NumPublicInputs+1 entries,
// IC[0] corresponding to the constant-1 wire.
type VerifyingKey struct {
	Alpha field.G1
	Beta  field.G2
	Gamma field.G2
	Delta field.G2
	IC    []field.G1
}

// Track distinguishes the two verifier-key slots a unit may hold: one for
// ballots, one for repeated anonymous comments (§5 Open Question: these
// version independently). Both tracks verify the same six public inputs; a
// comment's nonce is a private witness folded into its nullifier.
type Track int

const (
	TrackVote Track = iota
	TrackComment
)

// trackKeys holds every version ever installed for one (unit, track) slot.
// Keys are write-once per version (§3): SetVK only ever adds a new version,
// never mutates an existing one, so a proposal pinned to an older version
// stays verifiable for its whole lifetime even after the unit rotates to a
// newer key.
type trackKeys struct {
	versions map[uint64]VerifyingKey
	current  uint64
}

// KeyStore is the per-unit, per-track, per-version VerifyingKey table.
type KeyStore struct {
	mu      sync.Mutex
	entries map[uint64]map[Track]*trackKeys
}

// NewKeyStore returns an empty KeyStore.
func NewKeyStore() *KeyStore {
	return &KeyStore{entries: make(map[uint64]map[Track]*trackKeys)}
}

// SetVK installs a new verifying key for a unit/track as the next version;
// prior versions remain retrievable via GetVKVersion. Admin-gating is
// enforced by the caller (pkg/dao), not here.
func (s *KeyStore) SetVK(unit uint64, track Track, vk VerifyingKey) (uint64, error) {
	if len(vk.IC) < 1 {
		return 0, corerr.New(corerr.MalformedProof, "verifying key has no IC entries")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tracks, ok := s.entries[unit]
	if !ok {
		tracks = make(map[Track]*trackKeys)
		s.entries[unit] = tracks
	}
	tk, ok := tracks[track]
	if !ok {
		tk = &trackKeys{versions: make(map[uint64]VerifyingKey)}
		tracks[track] = tk
	}
	tk.current++
	tk.versions[tk.current] = vk
	return tk.current, nil
}

// GetVK returns the currently installed key and its version for a unit/track
// (§4.4 get_vk(unit) for the current version; used when opening a proposal).
func (s *KeyStore) GetVK(unit uint64, track Track) (VerifyingKey, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracks, ok := s.entries[unit]
	if !ok {
		return VerifyingKey{}, 0, corerr.New(corerr.VkNotSet, "no verifying key installed for unit")
	}
	tk, ok := tracks[track]
	if !ok || tk.current == 0 {
		return VerifyingKey{}, 0, corerr.New(corerr.VkNotSet, "no verifying key installed for track")
	}
	return tk.versions[tk.current], tk.current, nil
}

// GetVKVersion returns the specific version a proposal was pinned against
// (§4.4 get_vk(unit, version)), even if the unit has since rotated to a
// newer key.
func (s *KeyStore) GetVKVersion(unit uint64, track Track, version uint64) (VerifyingKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracks, ok := s.entries[unit]
	if !ok {
		return VerifyingKey{}, corerr.New(corerr.VkNotSet, "no verifying key installed for unit")
	}
	tk, ok := tracks[track]
	if !ok {
		return VerifyingKey{}, corerr.New(corerr.VkNotSet, "no verifying key installed for track")
	}
	vk, ok := tk.versions[version]
	if !ok {
		return VerifyingKey{}, corerr.New(corerr.VkNotSet, "no verifying key installed for that version")
	}
	return vk, nil
}
