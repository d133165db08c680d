package pokedex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokedexai/pokedex-agents/internal/pokeapi"
)

func subject(name string, stats map[string]int, order []string, types ...string) *pokeapi.Pokemon {
	return &pokeapi.Pokemon{
		Name:      name,
		Stats:     stats,
		StatOrder: order,
		Types:     types,
	}
}

func TestCompareStatsWinners(t *testing.T) {
	p1 := subject("pikachu", map[string]int{"hp": 35, "attack": 55}, []string{"hp", "attack"}, "electric")
	p2 := subject("bulbasaur", map[string]int{"hp": 60, "attack": 50}, []string{"hp", "attack"}, "grass")

	cmp := CompareStats(p1, p2)

	assert.Equal(t, "Bulbasaur", cmp.WinnerByStat["hp"])
	assert.Equal(t, "Pikachu", cmp.WinnerByStat["attack"])
	assert.Equal(t, -25, cmp.Differences["hp"])
	assert.Equal(t, 5, cmp.Differences["attack"])
	assert.Equal(t, 90, cmp.Pokemon1.Total)
	assert.Equal(t, 110, cmp.Pokemon2.Total)
	assert.Equal(t, "Bulbasaur", cmp.OverallWinner)
}

func TestCompareStatsTies(t *testing.T) {
	p1 := subject("ditto", map[string]int{"hp": 48, "attack": 48}, []string{"hp", "attack"})
	p2 := subject("mew", map[string]int{"hp": 48, "attack": 48}, []string{"hp", "attack"})

	cmp := CompareStats(p1, p2)

	assert.Equal(t, "tie", cmp.WinnerByStat["hp"])
	assert.Equal(t, "tie", cmp.WinnerByStat["attack"])
	assert.Equal(t, "tie", cmp.OverallWinner)
}

func TestCompareStatsWinnerMatchesDifferenceSign(t *testing.T) {
	p1 := subject("a", map[string]int{"hp": 10, "attack": 90, "speed": 50}, []string{"hp", "attack", "speed"})
	p2 := subject("b", map[string]int{"hp": 90, "attack": 10, "speed": 50}, []string{"hp", "attack", "speed"})

	cmp := CompareStats(p1, p2)
	for statName, diff := range cmp.Differences {
		switch {
		case diff > 0:
			assert.Equal(t, cmp.Pokemon1.Name, cmp.WinnerByStat[statName])
		case diff < 0:
			assert.Equal(t, cmp.Pokemon2.Name, cmp.WinnerByStat[statName])
		default:
			assert.Equal(t, "tie", cmp.WinnerByStat[statName])
		}
	}
}

func electricRelations() *pokeapi.TypeRelations {
	return &pokeapi.TypeRelations{
		Name:           "electric",
		DoubleDamageTo: []string{"water", "flying"},
		HalfDamageTo:   []string{"grass", "electric", "dragon"},
		NoDamageTo:     []string{"ground"},
	}
}

func TestEffectivenessNoDefenders(t *testing.T) {
	eff := ComputeEffectiveness(electricRelations(), "electric", nil)
	assert.Equal(t, 1.0, eff.EffectivenessMultiplier)
	assert.Equal(t, "Normal effectiveness", eff.Description)
	assert.Empty(t, eff.Details)
}

func TestEffectivenessStrongPlusUnrelated(t *testing.T) {
	eff := ComputeEffectiveness(electricRelations(), "electric", []string{"water", "fire"})
	assert.Equal(t, 2.0, eff.EffectivenessMultiplier)
	assert.Equal(t, "Super effective!", eff.Description)
	require.Len(t, eff.Details, 2)
	assert.Equal(t, "Super effective against water", eff.Details[0])
	assert.Equal(t, "Normal effectiveness against fire", eff.Details[1])
}

func TestEffectivenessOrderIndependentMultiplier(t *testing.T) {
	forward := ComputeEffectiveness(electricRelations(), "electric", []string{"water", "grass"})
	backward := ComputeEffectiveness(electricRelations(), "electric", []string{"grass", "water"})

	assert.Equal(t, forward.EffectivenessMultiplier, backward.EffectivenessMultiplier)
	assert.Equal(t, "Super effective against water", forward.Details[0])
	assert.Equal(t, "Not very effective against grass", backward.Details[0])
}

func TestEffectivenessBuckets(t *testing.T) {
	rel := electricRelations()

	quad := ComputeEffectiveness(rel, "electric", []string{"water", "flying"})
	assert.Equal(t, 4.0, quad.EffectivenessMultiplier)
	assert.Equal(t, "Extremely effective!", quad.Description)

	half := ComputeEffectiveness(rel, "electric", []string{"grass"})
	assert.Equal(t, 0.5, half.EffectivenessMultiplier)
	assert.Equal(t, "Not very effective...", half.Description)

	quarter := ComputeEffectiveness(rel, "electric", []string{"grass", "dragon"})
	assert.Equal(t, 0.25, quarter.EffectivenessMultiplier)
	assert.Equal(t, "Barely effective...", quarter.Description)

	immune := ComputeEffectiveness(rel, "electric", []string{"ground", "water"})
	assert.Equal(t, 0.0, immune.EffectivenessMultiplier)
	assert.Equal(t, "No effect!", immune.Description)
}

func TestBuildTriviaThresholdsAndStats(t *testing.T) {
	p := &pokeapi.Pokemon{
		Name:           "onix",
		Height:         88, // 8.8m
		Weight:         2100,
		BaseExperience: 77,
		Types:          []string{"rock", "ground"},
		Abilities:      []string{"rock-head", "sturdy"},
		Stats:          map[string]int{"hp": 35, "attack": 45, "defense": 160},
		StatOrder:      []string{"hp", "attack", "defense"},
	}

	trivia := BuildTrivia(p, &pokeapi.Species{FlavorText: "Burrows at high speed."})

	assert.Equal(t, "Onix", trivia.Name)
	assert.Contains(t, trivia.Facts, "This Pokemon is quite tall at 8.8 meters!")
	assert.Contains(t, trivia.Facts, "This Pokemon is heavy, weighing 210 kg!")
	assert.Contains(t, trivia.Facts, "Highest stat: Defense (160)")
	assert.Contains(t, trivia.Facts, "Lowest stat: Hp (35)")
	assert.Contains(t, trivia.Facts, "Total base stats: 240")
	assert.Contains(t, trivia.Facts, "Dual-type: Rock and Ground")
	assert.Contains(t, trivia.Abilities, "Rock Head")
	assert.Equal(t, "Burrows at high speed.", trivia.Description)
}

func TestBuildTriviaStableArgmax(t *testing.T) {
	p := &pokeapi.Pokemon{
		Name:      "porygon",
		Types:     []string{"normal"},
		Stats:     map[string]int{"hp": 65, "attack": 65, "defense": 70},
		StatOrder: []string{"hp", "attack", "defense"},
	}

	trivia := BuildTrivia(p, nil)

	// hp and attack tie for lowest; the first in upstream order wins.
	assert.Contains(t, trivia.Facts, "Lowest stat: Hp (65)")
	assert.Contains(t, trivia.Facts, "Highest stat: Defense (70)")
	assert.Empty(t, trivia.Description)
}

func TestBuildTriviaNoThresholdRemarks(t *testing.T) {
	p := &pokeapi.Pokemon{
		Name:      "pikachu",
		Height:    4,
		Weight:    60,
		Types:     []string{"electric"},
		Stats:     map[string]int{"hp": 35},
		StatOrder: []string{"hp"},
	}

	trivia := BuildTrivia(p, nil)
	for _, fact := range trivia.Facts {
		assert.NotContains(t, fact, "quite tall")
		assert.NotContains(t, fact, "heavy")
	}
	assert.Contains(t, trivia.Facts, "Pure Electric-type Pokemon")
}

func TestRankByStat(t *testing.T) {
	subjects := []*pokeapi.Pokemon{
		subject("pikachu", map[string]int{"speed": 90}, []string{"speed"}),
		subject("snorlax", map[string]int{"speed": 30}, []string{"speed"}),
		subject("jolteon", map[string]int{"speed": 130}, []string{"speed"}),
	}

	result := RankByStat("speed", subjects)

	require.Len(t, result.Rankings, 3)
	assert.Equal(t, "Jolteon", result.Rankings[0].Name)
	assert.Equal(t, 1, result.Rankings[0].Rank)
	assert.Equal(t, "Pikachu", result.Rankings[1].Name)
	assert.Equal(t, 2, result.Rankings[1].Rank)
	assert.Equal(t, "Snorlax", result.Rankings[2].Name)
	assert.Equal(t, 3, result.Rankings[2].Rank)

	require.NotNil(t, result.Summary.Highest)
	require.NotNil(t, result.Summary.Lowest)
	assert.Equal(t, "Jolteon", result.Summary.Highest.Name)
	assert.Equal(t, "Snorlax", result.Summary.Lowest.Name)
	assert.InDelta(t, 83.333, result.Summary.Average, 0.001)
}

func TestRankByStatStableOnTies(t *testing.T) {
	subjects := []*pokeapi.Pokemon{
		subject("crobat", map[string]int{"speed": 130}, []string{"speed"}),
		subject("aerodactyl", map[string]int{"speed": 130}, []string{"speed"}),
	}

	result := RankByStat("speed", subjects)

	require.Len(t, result.Rankings, 2)
	assert.Equal(t, "Crobat", result.Rankings[0].Name)
	assert.Equal(t, "Aerodactyl", result.Rankings[1].Name)
}

func TestRankByStatSkipsMissingStat(t *testing.T) {
	subjects := []*pokeapi.Pokemon{
		subject("pikachu", map[string]int{"speed": 90}, []string{"speed"}),
		subject("oddball", map[string]int{"hp": 50}, []string{"hp"}),
	}

	result := RankByStat("speed", subjects)
	require.Len(t, result.Rankings, 1)
	assert.Equal(t, "Pikachu", result.Rankings[0].Name)
}

func TestRankByStatEmpty(t *testing.T) {
	result := RankByStat("speed", nil)

	assert.Empty(t, result.Rankings)
	assert.Nil(t, result.Summary.Highest)
	assert.Nil(t, result.Summary.Lowest)
	assert.Equal(t, 0.0, result.Summary.Average)
}

func TestTitleize(t *testing.T) {
	assert.Equal(t, "Special Attack", titleize("special-attack"))
	assert.Equal(t, "Hp", titleize("hp"))
}
