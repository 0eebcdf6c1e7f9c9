package shop

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/hearthward/hearthward/internal/battle"
	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/core/event"
	"github.com/hearthward/hearthward/internal/data"
	"github.com/hearthward/hearthward/internal/world"
	"go.uber.org/zap"
)

var (
	ErrNoOffer    = errors.New("no such offer")
	ErrNotInDeck  = errors.New("unit not in deck")
	ErrDeckTooBig = errors.New("deck over size limit")
)

// Offer is one unit for sale between battles.
type Offer struct {
	Name  string
	Price uint32
	Taken bool
}

// Shop holds the offers rolled after a won battle.
type Shop struct {
	w      *world.State
	offers []Offer
	log    *zap.Logger
}

// New rolls size offers from the units available at the player's level,
// weighted by their chance.
func New(w *world.State, size int, log *zap.Logger) *Shop {
	s := &Shop{w: w, log: log}
	s.roll(size)
	return s
}

type stock struct {
	def   *data.EntityDef
	price uint32
}

func (s *Shop) available() []stock {
	level := s.w.Res.Player.Level
	var out []stock
	for _, name := range s.w.Res.Catalog.Category(data.CategoryUnits) {
		def, ok := s.w.Res.Catalog.Get(name)
		if !ok || def.Chance <= 0 || def.MinLevel > level {
			continue
		}
		if def.MaxLevel != nil && *def.MaxLevel < level {
			continue
		}
		out = append(out, stock{def: def, price: price(def)})
	}
	return out
}

// price makes rare and late units dearer.
func price(def *data.EntityDef) uint32 {
	return uint32(math.Floor(float64(5+def.MinLevel) / def.Chance))
}

func (s *Shop) roll(size int) {
	pool := s.available()
	s.offers = s.offers[:0]
	if len(pool) == 0 {
		s.log.Warn("shop has nothing to offer", zap.Uint32("level", s.w.Res.Player.Level))
		return
	}
	var total float64
	for _, st := range pool {
		total += st.def.Chance
	}
	for i := 0; i < size; i++ {
		roll := s.w.Res.Rand.Float64() * total
		pick := pool[len(pool)-1]
		for _, st := range pool {
			roll -= st.def.Chance
			if roll < 0 {
				pick = st
				break
			}
		}
		s.offers = append(s.offers, Offer{Name: pick.def.Name, Price: pick.price})
	}
}

// Offers returns a copy of the current offers.
func (s *Shop) Offers() []Offer {
	return slices.Clone(s.offers)
}

// Pick takes offer i and adds the unit to the player's deck.
func (s *Shop) Pick(i int) (ecs.Entity, error) {
	if i < 0 || i >= len(s.offers) || s.offers[i].Taken {
		return ecs.Nil, fmt.Errorf("%w: %d", ErrNoOffer, i)
	}
	e, err := s.w.SpawnByName(s.offers[i].Name, world.FactionPlayer)
	if err != nil {
		return ecs.Nil, fmt.Errorf("pick %s: %w", s.offers[i].Name, err)
	}
	s.offers[i].Taken = true
	s.w.Res.Player.Deck = append(s.w.Res.Player.Deck, e)
	s.log.Info("shop pick", zap.String("unit", s.offers[i].Name), zap.Int("deck", len(s.w.Res.Player.Deck)))
	return e, nil
}

// Overflow returns how many units must be discarded before the deck fits.
func (s *Shop) Overflow() int {
	return max(len(s.w.Res.Player.Deck)-s.w.Res.Rules.MaxDeckSize, 0)
}

// Discard removes a unit from the deck for good.
func (s *Shop) Discard(e ecs.Entity) error {
	p := &s.w.Res.Player
	i := slices.Index(p.Deck, e)
	if i < 0 {
		return ErrNotInDeck
	}
	p.Deck = slices.Delete(p.Deck, i, i+1)
	s.w.Despawn(e)
	return nil
}

// Process applies queued shop inputs: picks and deck discards. It returns
// ErrDeckTooBig while the deck is still over its limit.
func (s *Shop) Process(r *event.Reader) error {
	r.Drain(event.Dispatch(
		event.On(func(ev battle.InputPickShop) {
			if _, err := s.Pick(ev.Index); err != nil {
				s.log.Debug("shop pick rejected", zap.Error(err))
			}
		}),
		event.On(func(ev battle.InputDiscardUnit) {
			if err := s.Discard(ev.Entity); err != nil {
				s.log.Debug("deck discard rejected", zap.Error(err))
			}
		}),
	))
	if n := s.Overflow(); n > 0 {
		return fmt.Errorf("%w by %d", ErrDeckTooBig, n)
	}
	return nil
}
