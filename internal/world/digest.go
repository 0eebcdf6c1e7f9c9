package world

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/hearthward/hearthward/internal/core/ecs"
)

// Digest hashes the observable simulation state: every named or placed
// entity with its components, then the player and battle resources. Two
// runs from the same seed and inputs produce the same digest after every
// tick.
func (s *State) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte
	putU := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putI := func(v int) { putU(uint64(int64(v))) }
	putE := func(ids []ecs.Entity) {
		putU(uint64(len(ids)))
		for _, e := range ids {
			putU(uint64(e))
		}
	}

	for _, e := range s.digestEntities() {
		putU(uint64(e))
		if n, ok := s.Name.Value(e); ok {
			h.WriteString(n)
		}
		if p, ok := s.pos.Value(e); ok {
			putI(p.X)
			putI(p.Y)
		}
		if hp, ok := s.Health.Value(e); ok {
			putU(uint64(hp.Current)<<32 | uint64(hp.Max))
		}
		if l, ok := s.TriggerLimit.Value(e); ok {
			putU(uint64(l.Current)<<32 | uint64(l.Max))
		}
		if t, ok := s.Tile.Value(e); ok {
			putU(uint64(t))
		}
		putU(uint64(s.Faction(e)))
		if s.Killed.Has(e) {
			putU(1)
		}
	}

	p := s.Res.Player
	putU(uint64(p.Health.Current)<<32 | uint64(p.Health.Max))
	putU(uint64(p.Food))
	putU(uint64(p.Level))
	putE(p.Deck)
	putE(p.Draw)
	putE(p.Hand)
	putE(p.Discard)

	b := s.Res.Battle
	putU(uint64(b.Mode))
	putU(uint64(b.Outcome))
	putU(uint64(b.Wave))
	putU(uint64(b.Turn))
	putE(b.FightQueue)
	return h.Sum64()
}

func (s *State) digestEntities() []ecs.Entity {
	seen := make(map[ecs.Entity]struct{})
	var out []ecs.Entity
	for _, t := range []ecs.Table{s.Name, s.pos} {
		for _, e := range t.Entities() {
			if _, ok := seen[e]; !ok {
				seen[e] = struct{}{}
				out = append(out, e)
			}
		}
	}
	slices.Sort(out)
	return out
}
