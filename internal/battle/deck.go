package battle

import (
	"fmt"
	"slices"

	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/world"
)

// NewSquad spawns the starting deck as player pieces: every fixed name plus
// one randomly chosen extra.
func NewSquad(w *world.State, fixed, extras []string) error {
	names := slices.Clone(fixed)
	if len(extras) > 0 {
		names = append(names, extras[w.Res.Rand.Intn(len(extras))])
	}
	for _, n := range names {
		e, err := w.SpawnByName(n, world.FactionPlayer)
		if err != nil {
			return fmt.Errorf("starting deck: %w", err)
		}
		w.Res.Player.Deck = append(w.Res.Player.Deck, e)
	}
	return nil
}

// resetDeck shuffles the whole deck into the draw pile.
func resetDeck(w *world.State) {
	p := &w.Res.Player
	p.Draw = slices.Clone(p.Deck)
	p.Hand = nil
	p.Discard = nil
	w.Res.Rand.Shuffle(len(p.Draw), func(i, j int) {
		p.Draw[i], p.Draw[j] = p.Draw[j], p.Draw[i]
	})
}

// drawHand fills the hand up to the configured size, reshuffling the discard
// pile into the draw pile when it runs out.
func drawHand(w *world.State) {
	p := &w.Res.Player
	for len(p.Hand) < w.Res.Rules.HandSize {
		if len(p.Draw) == 0 {
			if len(p.Discard) == 0 {
				return
			}
			p.Draw, p.Discard = p.Discard, nil
			w.Res.Rand.Shuffle(len(p.Draw), func(i, j int) {
				p.Draw[i], p.Draw[j] = p.Draw[j], p.Draw[i]
			})
		}
		last := len(p.Draw) - 1
		p.Hand = append(p.Hand, p.Draw[last])
		p.Draw = p.Draw[:last]
	}
}

func inDeck(w *world.State, e ecs.Entity) bool {
	return slices.Contains(w.Res.Player.Deck, e)
}

// without returns ids minus e, and whether e was present.
func without(ids []ecs.Entity, e ecs.Entity) ([]ecs.Entity, bool) {
	i := slices.Index(ids, e)
	if i < 0 {
		return ids, false
	}
	return slices.Delete(ids, i, i+1), true
}
