package pokedex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pokedexai/pokedex-agents/internal/pokeapi"
	"github.com/pokedexai/pokedex-agents/internal/tools"
)

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func titleize(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "-", " "), " ")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// ComparisonSide is one subject's half of a stat comparison.
type ComparisonSide struct {
	Name  string         `json:"name"`
	Stats map[string]int `json:"stats"`
	Total int            `json:"total"`
	Types []string       `json:"types"`
}

// StatComparison is the full output of compare_pokemon_stats.
type StatComparison struct {
	Pokemon1      ComparisonSide    `json:"pokemon1"`
	Pokemon2      ComparisonSide    `json:"pokemon2"`
	Differences   map[string]int    `json:"differences"`
	WinnerByStat  map[string]string `json:"winner_by_stat"`
	OverallWinner string            `json:"overall_winner"`
}

// CompareStats computes the per-stat signed differences and winners between
// two subjects. A zero difference reports "tie", as does an equal total.
func CompareStats(p1, p2 *pokeapi.Pokemon) *StatComparison {
	side := func(p *pokeapi.Pokemon) ComparisonSide {
		total := 0
		for _, v := range p.Stats {
			total += v
		}
		return ComparisonSide{
			Name:  capitalize(p.Name),
			Stats: p.Stats,
			Total: total,
			Types: p.Types,
		}
	}

	cmp := &StatComparison{
		Pokemon1:     side(p1),
		Pokemon2:     side(p2),
		Differences:  make(map[string]int),
		WinnerByStat: make(map[string]string),
	}

	for _, statName := range p1.StatOrder {
		v2, ok := p2.Stats[statName]
		if !ok {
			continue
		}
		diff := p1.Stats[statName] - v2
		cmp.Differences[statName] = diff
		switch {
		case diff > 0:
			cmp.WinnerByStat[statName] = cmp.Pokemon1.Name
		case diff < 0:
			cmp.WinnerByStat[statName] = cmp.Pokemon2.Name
		default:
			cmp.WinnerByStat[statName] = "tie"
		}
	}

	totalDiff := cmp.Pokemon1.Total - cmp.Pokemon2.Total
	switch {
	case totalDiff > 0:
		cmp.OverallWinner = cmp.Pokemon1.Name
	case totalDiff < 0:
		cmp.OverallWinner = cmp.Pokemon2.Name
	default:
		cmp.OverallWinner = "tie"
	}
	return cmp
}

// Effectiveness is the output of calculate_type_effectiveness.
type Effectiveness struct {
	AttackerType            string   `json:"attacker_type"`
	DefenderTypes           []string `json:"defender_types"`
	EffectivenessMultiplier float64  `json:"effectiveness_multiplier"`
	Description             string   `json:"description"`
	Details                 []string `json:"details"`
}

// ComputeEffectiveness multiplies the damage multiplier once per defending
// type, preserving input order in the per-type details.
func ComputeEffectiveness(rel *pokeapi.TypeRelations, attackerType string, defenderTypes []string) *Effectiveness {
	contains := func(set []string, name string) bool {
		for _, t := range set {
			if t == name {
				return true
			}
		}
		return false
	}

	multiplier := 1.0
	details := make([]string, 0, len(defenderTypes))
	for _, defender := range defenderTypes {
		lower := strings.ToLower(strings.TrimSpace(defender))
		switch {
		case contains(rel.DoubleDamageTo, lower):
			multiplier *= 2.0
			details = append(details, fmt.Sprintf("Super effective against %s", defender))
		case contains(rel.HalfDamageTo, lower):
			multiplier *= 0.5
			details = append(details, fmt.Sprintf("Not very effective against %s", defender))
		case contains(rel.NoDamageTo, lower):
			multiplier *= 0.0
			details = append(details, fmt.Sprintf("No effect against %s", defender))
		default:
			details = append(details, fmt.Sprintf("Normal effectiveness against %s", defender))
		}
	}

	return &Effectiveness{
		AttackerType:            attackerType,
		DefenderTypes:           defenderTypes,
		EffectivenessMultiplier: multiplier,
		Description:             effectivenessDescription(multiplier),
		Details:                 details,
	}
}

func effectivenessDescription(multiplier float64) string {
	switch {
	case multiplier >= 4.0:
		return "Extremely effective!"
	case multiplier >= 2.0:
		return "Super effective!"
	case multiplier == 1.0:
		return "Normal effectiveness"
	case multiplier >= 0.5:
		return "Not very effective..."
	case multiplier > 0:
		return "Barely effective..."
	default:
		return "No effect!"
	}
}

// Trivia is the output of generate_pokemon_trivia. Description is omitted
// entirely when no English Pokedex entry exists.
type Trivia struct {
	Name           string   `json:"name"`
	HeightM        float64  `json:"height_m"`
	WeightKg       float64  `json:"weight_kg"`
	Types          []string `json:"types"`
	Abilities      []string `json:"abilities"`
	BaseExperience int      `json:"base_experience"`
	Facts          []string `json:"facts"`
	Description    string   `json:"description,omitempty"`
}

const (
	tallThresholdM   = 5.0
	heavyThresholdKg = 100.0
)

// BuildTrivia derives deterministic facts from a subject's attributes.
// species may be nil when the secondary lookup failed.
func BuildTrivia(p *pokeapi.Pokemon, species *pokeapi.Species) *Trivia {
	trivia := &Trivia{
		Name:           capitalize(p.Name),
		HeightM:        float64(p.Height) / 10, // decimeters to meters
		WeightKg:       float64(p.Weight) / 10, // hectograms to kilograms
		BaseExperience: p.BaseExperience,
	}
	for _, t := range p.Types {
		trivia.Types = append(trivia.Types, capitalize(t))
	}
	for _, a := range p.Abilities {
		trivia.Abilities = append(trivia.Abilities, titleize(a))
	}

	if trivia.HeightM > tallThresholdM {
		trivia.Facts = append(trivia.Facts, fmt.Sprintf("This Pokemon is quite tall at %g meters!", trivia.HeightM))
	}
	if trivia.WeightKg > heavyThresholdKg {
		trivia.Facts = append(trivia.Facts, fmt.Sprintf("This Pokemon is heavy, weighing %g kg!", trivia.WeightKg))
	}

	// First stat in upstream order wins ties, for both extremes.
	if len(p.StatOrder) > 0 {
		highest, lowest := p.StatOrder[0], p.StatOrder[0]
		total := 0
		for _, statName := range p.StatOrder {
			v := p.Stats[statName]
			total += v
			if v > p.Stats[highest] {
				highest = statName
			}
			if v < p.Stats[lowest] {
				lowest = statName
			}
		}
		trivia.Facts = append(trivia.Facts,
			fmt.Sprintf("Highest stat: %s (%d)", titleize(highest), p.Stats[highest]),
			fmt.Sprintf("Lowest stat: %s (%d)", titleize(lowest), p.Stats[lowest]),
			fmt.Sprintf("Total base stats: %d", total),
		)
	}

	if len(p.Types) == 1 {
		trivia.Facts = append(trivia.Facts, fmt.Sprintf("Pure %s-type Pokemon", capitalize(p.Types[0])))
	} else if len(p.Types) > 1 {
		titled := make([]string, len(p.Types))
		for i, t := range p.Types {
			titled[i] = capitalize(t)
		}
		trivia.Facts = append(trivia.Facts, fmt.Sprintf("Dual-type: %s", strings.Join(titled, " and ")))
	}

	if species != nil && species.FlavorText != "" {
		trivia.Description = species.FlavorText
	}
	return trivia
}

// RankEntry is one row of a stat ranking.
type RankEntry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Rank  int    `json:"rank"`
}

// RankSummary carries the extremes and mean of a ranking; Highest and Lowest
// are null when nothing ranked.
type RankSummary struct {
	Highest *RankEntry `json:"highest"`
	Lowest  *RankEntry `json:"lowest"`
	Average float64    `json:"average"`
}

// StatRankings is the output of get_stat_rankings.
type StatRankings struct {
	StatAnalyzed string      `json:"stat_analyzed"`
	Rankings     []RankEntry `json:"rankings"`
	Summary      RankSummary `json:"summary"`
}

// RankByStat sorts subjects descending by the named stat with a stable sort,
// assigning 1-based ranks. Subjects missing the stat are skipped.
func RankByStat(statName string, subjects []*pokeapi.Pokemon) *StatRankings {
	entries := make([]RankEntry, 0, len(subjects))
	for _, p := range subjects {
		v, ok := p.Stats[statName]
		if !ok {
			continue
		}
		entries = append(entries, RankEntry{Name: capitalize(p.Name), Value: v})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	result := &StatRankings{
		StatAnalyzed: titleize(statName),
		Rankings:     entries,
	}
	if len(entries) > 0 {
		sum := 0
		for _, e := range entries {
			sum += e.Value
		}
		result.Summary.Highest = &entries[0]
		result.Summary.Lowest = &entries[len(entries)-1]
		result.Summary.Average = float64(sum) / float64(len(entries))
	}
	return result
}

// AnalyticsTools returns the comparison/effectiveness/trivia/ranking tool
// set of the analytics specialist.
func AnalyticsTools(client *pokeapi.Client) []tools.Definition {
	return []tools.Definition{
		{
			Name:        "compare_pokemon_stats",
			Description: "Compare base stats between two Pokemon, reporting per-stat differences, winners and totals.",
			Params: []tools.Param{
				{Name: "pokemon1", Type: "string", Description: "Name of the first Pokemon", Required: true},
				{Name: "pokemon2", Type: "string", Description: "Name of the second Pokemon", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				name1 := stringArg(args, "pokemon1")
				name2 := stringArg(args, "pokemon2")
				p1, err1 := client.GetPokemon(ctx, name1)
				p2, err2 := client.GetPokemon(ctx, name2)
				if err1 != nil || err2 != nil {
					return errorPayload("could not fetch data for one or both Pokemon: %s, %s", name1, name2), nil
				}
				return marshalResult(CompareStats(p1, p2))
			},
		},
		{
			Name:        "calculate_type_effectiveness",
			Description: "Calculate the damage multiplier of an attacking type against one or more defending types.",
			Params: []tools.Param{
				{Name: "attacker_type", Type: "string", Description: "The attacking Pokemon's type", Required: true},
				{Name: "defender_types", Type: "array", Description: "List of defending Pokemon's types", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				attacker := stringArg(args, "attacker_type")
				defenders := stringSliceArg(args, "defender_types")
				rel, err := client.GetType(ctx, attacker)
				if err != nil {
					if pokeapi.IsNotFound(err) {
						return errorPayload("type '%s' not found", attacker), nil
					}
					return errorPayload("type lookup failed for '%s'", attacker), nil
				}
				return marshalResult(ComputeEffectiveness(rel, attacker, defenders))
			},
		},
		{
			Name:        "generate_pokemon_trivia",
			Description: "Generate interesting trivia and fun facts about a Pokemon.",
			Params: []tools.Param{
				{Name: "pokemon_name", Type: "string", Description: "Name of the Pokemon to generate trivia for", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				name := stringArg(args, "pokemon_name")
				p, err := client.GetPokemon(ctx, name)
				if err != nil {
					if pokeapi.IsNotFound(err) {
						return errorPayload("Pokemon '%s' not found", name), nil
					}
					return errorPayload("could not fetch data for Pokemon: %s", name), nil
				}
				// Species lookup is best-effort: trivia still renders without it.
				species, err := client.GetSpecies(ctx, name)
				if err != nil {
					species = nil
				}
				return marshalResult(BuildTrivia(p, species))
			},
		},
		{
			Name:        "get_stat_rankings",
			Description: "Rank a list of Pokemon by a specific stat, highest first.",
			Params: []tools.Param{
				{Name: "stat_name", Type: "string", Description: "Name of the stat (hp, attack, defense, special-attack, special-defense, speed)", Required: true},
				{Name: "pokemon_list", Type: "array", Description: "Names of the Pokemon to rank", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				statName := strings.ToLower(stringArg(args, "stat_name"))
				names := stringSliceArg(args, "pokemon_list")

				subjects := make([]*pokeapi.Pokemon, 0, len(names))
				for _, name := range names {
					p, err := client.GetPokemon(ctx, name)
					if err != nil {
						// Unresolvable subjects shorten the ranking, never fail it.
						continue
					}
					subjects = append(subjects, p)
				}
				return marshalResult(RankByStat(statName, subjects))
			},
		},
	}
}
