package pokedex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pokedexai/pokedex-agents/internal/pokeapi"
	"github.com/pokedexai/pokedex-agents/internal/tools"
)

var (
	// ErrUnknownStrategy is returned by team building for a strategy name
	// outside balanced|offensive|defensive.
	ErrUnknownStrategy = errors.New("unknown team strategy")

	// ErrNoData is returned by team analysis when every member lookup failed.
	ErrNoData = errors.New("no team data could be fetched")
)

// AllTypes is the full set of known type categories.
var AllTypes = []string{
	"normal", "fire", "water", "electric", "grass", "ice",
	"fighting", "poison", "ground", "flying", "psychic", "bug",
	"rock", "ghost", "dragon", "dark", "steel", "fairy",
}

// ImportantTypes are the coverage categories a team is expected to answer.
var ImportantTypes = []string{
	"normal", "fire", "water", "electric", "grass", "fighting", "ground", "flying",
}

// TeamMember is one roster entry with its known type categories.
type TeamMember struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// rosters are fixed per strategy; team building truncates, never fetches.
var rosters = map[string][]TeamMember{
	"balanced": {
		{Name: "pikachu", Types: []string{"electric"}},
		{Name: "charizard", Types: []string{"fire", "flying"}},
		{Name: "blastoise", Types: []string{"water"}},
		{Name: "venusaur", Types: []string{"grass", "poison"}},
		{Name: "snorlax", Types: []string{"normal"}},
		{Name: "lapras", Types: []string{"water", "ice"}},
	},
	"offensive": {
		{Name: "charizard", Types: []string{"fire", "flying"}},
		{Name: "gengar", Types: []string{"ghost", "poison"}},
		{Name: "gyarados", Types: []string{"water", "flying"}},
		{Name: "alakazam", Types: []string{"psychic"}},
		{Name: "machamp", Types: []string{"fighting"}},
		{Name: "dragonite", Types: []string{"dragon", "flying"}},
	},
	"defensive": {
		{Name: "snorlax", Types: []string{"normal"}},
		{Name: "blastoise", Types: []string{"water"}},
		{Name: "steelix", Types: []string{"steel", "ground"}},
		{Name: "umbreon", Types: []string{"dark"}},
		{Name: "chansey", Types: []string{"normal"}},
		{Name: "cloyster", Types: []string{"water", "ice"}},
	},
}

// TeamBuild is the output of build_pokemon_team.
type TeamBuild struct {
	Strategy     string       `json:"strategy"`
	Team         []TeamMember `json:"team"`
	TypeCoverage []string     `json:"type_coverage"`
}

// BuildTeam truncates the strategy's fixed roster to min(size, roster length)
// and reports the distinct categories covered, in first-seen order.
func BuildTeam(strategy string, size int) (*TeamBuild, error) {
	roster, ok := rosters[strings.ToLower(strings.TrimSpace(strategy))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}
	if size <= 0 || size > len(roster) {
		size = len(roster)
	}

	team := roster[:size]
	seen := make(map[string]bool)
	var coverage []string
	for _, member := range team {
		for _, t := range member.Types {
			if !seen[t] {
				seen[t] = true
				coverage = append(coverage, t)
			}
		}
	}
	return &TeamBuild{
		Strategy:     strings.ToLower(strings.TrimSpace(strategy)),
		Team:         team,
		TypeCoverage: coverage,
	}, nil
}

// StatSpread is the average/min/max of one stat across a team.
type StatSpread struct {
	Average float64 `json:"average"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// TeamAnalysis is the output of analyze_team_composition.
type TeamAnalysis struct {
	TeamSize   int                   `json:"team_size"`
	Members    []string              `json:"members"`
	Stats      map[string]StatSpread `json:"stats"`
	TypeCounts map[string]int        `json:"type_counts"`
	Strengths  []string              `json:"strengths"`
	Weaknesses []string              `json:"weaknesses"`
}

// AnalyzeTeam computes per-stat spreads and rule-based strengths and
// weaknesses over the resolvable subset of the team. Returns ErrNoData only
// when nothing resolved.
func AnalyzeTeam(members []*pokeapi.Pokemon) (*TeamAnalysis, error) {
	if len(members) == 0 {
		return nil, ErrNoData
	}

	analysis := &TeamAnalysis{
		TeamSize:   len(members),
		Stats:      make(map[string]StatSpread),
		TypeCounts: make(map[string]int),
	}

	sums := make(map[string]int)
	mins := make(map[string]int)
	maxs := make(map[string]int)
	counts := make(map[string]int)
	totalSum := 0

	for _, p := range members {
		analysis.Members = append(analysis.Members, capitalize(p.Name))
		memberTotal := 0
		for statName, v := range p.Stats {
			memberTotal += v
			sums[statName] += v
			counts[statName]++
			if counts[statName] == 1 || v < mins[statName] {
				mins[statName] = v
			}
			if counts[statName] == 1 || v > maxs[statName] {
				maxs[statName] = v
			}
		}
		totalSum += memberTotal
		for _, t := range p.Types {
			analysis.TypeCounts[t]++
		}
	}

	for statName, sum := range sums {
		analysis.Stats[statName] = StatSpread{
			Average: float64(sum) / float64(counts[statName]),
			Min:     mins[statName],
			Max:     maxs[statName],
		}
	}

	distinctTypes := len(analysis.TypeCounts)
	switch {
	case distinctTypes >= 10:
		analysis.Strengths = append(analysis.Strengths, "Excellent type coverage")
	case distinctTypes >= 6:
		analysis.Strengths = append(analysis.Strengths, "Good type coverage")
	default:
		analysis.Weaknesses = append(analysis.Weaknesses, "Limited type coverage")
	}

	meanTotal := float64(totalSum) / float64(len(members))
	if meanTotal >= 500 {
		analysis.Strengths = append(analysis.Strengths, "High overall base stats")
	} else if meanTotal <= 400 {
		analysis.Weaknesses = append(analysis.Weaknesses, "Below average base stats")
	}

	return analysis, nil
}

// TeamCoverage is the output of calculate_team_coverage.
type TeamCoverage struct {
	CoverageScore  float64  `json:"coverage_score"`
	TypesCovered   []string `json:"types_covered"`
	MissingTypes   []string `json:"missing_important_types"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// ComputeCoverage scores distinct category coverage against the 18 known
// types and flags absent important categories.
func ComputeCoverage(members []*pokeapi.Pokemon) (*TeamCoverage, error) {
	if len(members) == 0 {
		return nil, ErrNoData
	}

	covered := make(map[string]bool)
	for _, p := range members {
		for _, t := range p.Types {
			covered[t] = true
		}
	}

	coverage := &TeamCoverage{
		CoverageScore: math.Round(float64(len(covered))/float64(len(AllTypes))*1000) / 10,
	}
	for t := range covered {
		coverage.TypesCovered = append(coverage.TypesCovered, t)
	}
	sort.Strings(coverage.TypesCovered)

	for _, t := range ImportantTypes {
		if !covered[t] {
			coverage.MissingTypes = append(coverage.MissingTypes, t)
		}
	}

	if len(covered) < 6 {
		coverage.Recommendation = "Consider diversifying your team's types for better coverage"
	} else if len(covered) >= 12 {
		coverage.Recommendation = "Excellent type diversity across the team"
	}
	return coverage, nil
}

// TeamImprovements is the output of suggest_team_improvements.
type TeamImprovements struct {
	Suggestions []string `json:"suggestions"`
}

// SuggestImprovements derives concrete followups from analysis + coverage.
func SuggestImprovements(analysis *TeamAnalysis, coverage *TeamCoverage) *TeamImprovements {
	out := &TeamImprovements{}
	for _, t := range coverage.MissingTypes {
		out.Suggestions = append(out.Suggestions, fmt.Sprintf("Add a %s-type member to answer %s threats", t, t))
	}
	for _, w := range analysis.Weaknesses {
		switch w {
		case "Limited type coverage":
			out.Suggestions = append(out.Suggestions, "Swap duplicate-type members for new types to widen coverage")
		case "Below average base stats":
			out.Suggestions = append(out.Suggestions, "Replace the lowest-total member with a stronger alternative")
		}
	}
	if len(out.Suggestions) == 0 {
		out.Suggestions = append(out.Suggestions, "Team composition looks solid; no specific changes recommended")
	}
	return out
}

func fetchTeam(ctx context.Context, client *pokeapi.Client, names []string) []*pokeapi.Pokemon {
	members := make([]*pokeapi.Pokemon, 0, len(names))
	for _, name := range names {
		p, err := client.GetPokemon(ctx, name)
		if err != nil {
			continue
		}
		members = append(members, p)
	}
	return members
}

// TeamTools returns the team-composition tool set of the analytics
// specialist.
func TeamTools(client *pokeapi.Client) []tools.Definition {
	teamParam := tools.Param{Name: "team", Type: "array", Description: "Names of the Pokemon on the team", Required: true}

	return []tools.Definition{
		{
			Name:        "build_pokemon_team",
			Description: "Build a Pokemon team from a fixed roster for a given strategy (balanced, offensive or defensive).",
			Params: []tools.Param{
				{Name: "strategy", Type: "string", Description: "Team strategy: balanced, offensive or defensive", Required: true},
				{Name: "size", Type: "number", Description: "Requested team size (defaults to the full roster)"},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				build, err := BuildTeam(stringArg(args, "strategy"), intArg(args, "size", 0))
				if err != nil {
					if errors.Is(err, ErrUnknownStrategy) {
						return errorPayload("unknown strategy '%s': choose balanced, offensive or defensive", stringArg(args, "strategy")), nil
					}
					return "", err
				}
				return marshalResult(build)
			},
		},
		{
			Name:        "analyze_team_composition",
			Description: "Analyze a team's stat spreads, type distribution and rule-based strengths and weaknesses.",
			Params:      []tools.Param{teamParam},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				members := fetchTeam(ctx, client, stringSliceArg(args, "team"))
				analysis, err := AnalyzeTeam(members)
				if err != nil {
					return errorPayload("could not fetch data for any team member"), nil
				}
				return marshalResult(analysis)
			},
		},
		{
			Name:        "calculate_team_coverage",
			Description: "Score a team's type coverage and flag missing important types.",
			Params:      []tools.Param{teamParam},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				members := fetchTeam(ctx, client, stringSliceArg(args, "team"))
				coverage, err := ComputeCoverage(members)
				if err != nil {
					return errorPayload("could not fetch data for any team member"), nil
				}
				return marshalResult(coverage)
			},
		},
		{
			Name:        "suggest_team_improvements",
			Description: "Suggest concrete team changes based on composition analysis and type coverage.",
			Params:      []tools.Param{teamParam},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				members := fetchTeam(ctx, client, stringSliceArg(args, "team"))
				analysis, err := AnalyzeTeam(members)
				if err != nil {
					return errorPayload("could not fetch data for any team member"), nil
				}
				coverage, err := ComputeCoverage(members)
				if err != nil {
					return errorPayload("could not fetch data for any team member"), nil
				}
				return marshalResult(SuggestImprovements(analysis, coverage))
			},
		},
	}
}
