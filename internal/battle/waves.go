package battle

import (
	"math/rand"

	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/data"
	"github.com/hearthward/hearthward/internal/world"
)

type candidate struct {
	name  string
	score uint32
}

// wavePool lists the npcs available at the player's level.
func wavePool(w *world.State) []candidate {
	var pool []candidate
	for _, name := range w.Res.Catalog.Category(data.CategoryNpcs) {
		def, ok := w.Res.Catalog.Get(name)
		if !ok || def.Tier > w.Res.Player.Level {
			continue
		}
		pool = append(pool, candidate{name: def.Name, score: def.Score})
	}
	return pool
}

// planWave picks npcs until the wave's score budget (level × wave) is spent
// or the staging rows are full, and lays them out column by column. The
// first npc in a column stands nearest the player.
func planWave(w *world.State) []SpawnByName {
	rules := w.Res.Rules
	budget := w.Res.Player.Level * w.Res.Battle.Wave
	pool := wavePool(w)
	heights := make([]int, rules.BoardWidth)

	var out []SpawnByName
	for {
		var fits []candidate
		for _, c := range pool {
			if c.score <= budget {
				fits = append(fits, c)
			}
		}
		if len(fits) == 0 {
			return out
		}
		pick, ok := weighted(w.Res.Rand, len(fits), func(i int) int { return int(fits[i].score) })
		if !ok {
			return out
		}
		col, ok := weighted(w.Res.Rand, len(heights), func(i int) int {
			return max(rules.MaxWaveHeight-heights[i], 0)
		})
		if !ok {
			return out
		}
		budget -= fits[pick].score
		out = append(out, SpawnByName{
			Name:    fits[pick].name,
			To:      world.Position{X: col, Y: rules.BoardHeight + heights[col]},
			Faction: world.FactionNpc,
		})
		heights[col]++
	}
}

// weighted draws an index with probability proportional to weight(i). It
// fails when every weight is zero.
func weighted(r *rand.Rand, n int, weight func(int) int) (int, bool) {
	total := 0
	for i := 0; i < n; i++ {
		total += weight(i)
	}
	if total <= 0 {
		return 0, false
	}
	roll := r.Intn(total)
	for i := 0; i < n; i++ {
		roll -= weight(i)
		if roll < 0 {
			return i, true
		}
	}
	return n - 1, true
}

// npcsOnBoard returns the standing npcs, front row first.
func npcsOnBoard(w *world.State) []ecs.Entity {
	var out []ecs.Entity
	for _, e := range w.Units() {
		if w.Npc.Has(e) && !w.Killed.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// nextAttack chooses the next enemy action: the first npc in row-then-column
// order attacks the frontmost player unit in its column, or the town when
// the column is undefended.
func nextAttack(w *world.State) (any, bool) {
	npcs := npcsOnBoard(w)
	if len(npcs) == 0 {
		return nil, false
	}
	attacker := npcs[0]
	p, _ := w.Pos(attacker)
	col := w.InColumn(p.X)
	for i := len(col) - 1; i >= 0; i-- {
		e := col[i]
		if w.Player.Has(e) && !w.Killed.Has(e) {
			return Attack{Attacker: attacker, Target: e}, true
		}
	}
	return AttackTown{Attacker: attacker}, true
}
