package pokedex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pokedexai/pokedex-agents/internal/pokeapi"
	"github.com/pokedexai/pokedex-agents/internal/tools"
)

// errorPayload renders a lookup failure as a structured result the reasoning
// component can explain in natural language. Handlers return these instead
// of errors so a bad subject name never fails the turn.
func errorPayload(format string, args ...interface{}) string {
	data, _ := json.Marshal(map[string]string{"error": fmt.Sprintf(format, args...)})
	return string(data)
}

func marshalResult(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(data), nil
}

func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

func intArg(args map[string]interface{}, name string, fallback int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func stringSliceArg(args map[string]interface{}, name string) []string {
	raw, ok := args[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// BasicInfoTools returns the tool set of the basic-info specialist: raw
// subject lookups and paginated search over the catalog.
func BasicInfoTools(client *pokeapi.Client) []tools.Definition {
	return []tools.Definition{
		{
			Name:        "get_pokemon_info",
			Description: "Get information about a specific Pokemon: types, abilities, base stats, height and weight.",
			Params: []tools.Param{
				{Name: "pokemon_name", Type: "string", Description: "The name or ID of the Pokemon (e.g. \"pikachu\", \"25\")", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				name := stringArg(args, "pokemon_name")
				p, err := client.GetPokemon(ctx, name)
				if err != nil {
					if pokeapi.IsNotFound(err) {
						return errorPayload("Pokemon '%s' not found", name), nil
					}
					return errorPayload("Pokemon API request failed for '%s'", name), nil
				}
				return marshalResult(p)
			},
		},
		{
			Name:        "get_pokemon_species",
			Description: "Get species information about a Pokemon, including its Pokedex description, habitat and rarity.",
			Params: []tools.Param{
				{Name: "pokemon_name", Type: "string", Description: "The name or ID of the Pokemon", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				name := stringArg(args, "pokemon_name")
				sp, err := client.GetSpecies(ctx, name)
				if err != nil {
					if pokeapi.IsNotFound(err) {
						return errorPayload("species data for '%s' not found", name), nil
					}
					return errorPayload("species lookup failed for '%s'", name), nil
				}
				return marshalResult(sp)
			},
		},
		{
			Name:        "search_pokemon",
			Description: "Search and list Pokemon with pagination.",
			Params: []tools.Param{
				{Name: "limit", Type: "number", Description: "Number of Pokemon to return (default 20, max 100)"},
				{Name: "offset", Type: "number", Description: "Number of Pokemon to skip (default 0)"},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				limit := intArg(args, "limit", 0)
				offset := intArg(args, "offset", 0)
				page, err := client.ListPokemon(ctx, limit, offset)
				if err != nil {
					return errorPayload("Pokemon search failed"), nil
				}
				return marshalResult(map[string]interface{}{
					"count":    page.Count,
					"next":     page.Next,
					"previous": page.Previous,
					"pokemon":  page.Results,
				})
			},
		},
	}
}
