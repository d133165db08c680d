package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://pokeapi.co/api/v2"

	defaultTimeout = 15 * time.Second

	// List pagination bounds, matching the upstream API's own page cap.
	MaxListLimit     = 100
	DefaultListLimit = 20
)

// FetchErrorKind classifies upstream failures so callers can decide between
// "unknown subject" and "upstream trouble" without parsing error strings.
type FetchErrorKind string

const (
	ErrNotFound        FetchErrorKind = "not_found"
	ErrUpstream        FetchErrorKind = "upstream_error"
	ErrInvalidResponse FetchErrorKind = "invalid_response"
	ErrTransport       FetchErrorKind = "transport"
)

// FetchError wraps everything that can go wrong talking to the upstream API.
type FetchError struct {
	Kind     FetchErrorKind
	Resource string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrNotFound:
		return fmt.Sprintf("resource %q not found", e.Resource)
	case ErrUpstream:
		return fmt.Sprintf("upstream returned status %d for %q", e.Status, e.Resource)
	case ErrInvalidResponse:
		return fmt.Sprintf("invalid response body for %q: %v", e.Resource, e.Err)
	default:
		return fmt.Sprintf("request for %q failed: %v", e.Resource, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a FetchError for a missing resource.
func IsNotFound(err error) bool {
	fe, ok := err.(*FetchError)
	return ok && fe.Kind == ErrNotFound
}

// Pokemon is the projection of the upstream pokemon resource that the tools
// actually consume. Stats keeps the upstream stat names as keys; StatOrder
// preserves the order they arrived in so comparisons render deterministically.
type Pokemon struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	Height         int            `json:"height"`
	Weight         int            `json:"weight"`
	BaseExperience int            `json:"base_experience"`
	Types          []string       `json:"types"`
	Abilities      []string       `json:"abilities"`
	Stats          map[string]int `json:"stats"`
	StatOrder      []string       `json:"-"`
	Sprite         string         `json:"sprite,omitempty"`
}

// Species carries the flavor data used by trivia and species lookups.
type Species struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Generation  string `json:"generation"`
	Shape       string `json:"shape"`
	FlavorText  string `json:"flavor_text"`
	Habitat     string `json:"habitat"`
	IsLegendary bool   `json:"is_legendary"`
	IsMythical  bool   `json:"is_mythical"`
	CaptureRate int    `json:"capture_rate"`
	Color       string `json:"color"`
	Genus       string `json:"genus"`
}

// TypeRelations holds the damage relations for a single type.
type TypeRelations struct {
	Name           string   `json:"name"`
	DoubleDamageTo []string `json:"double_damage_to"`
	HalfDamageTo   []string `json:"half_damage_to"`
	NoDamageTo     []string `json:"no_damage_to"`
}

// ListEntry is one row of the paginated pokemon index. The ID is recovered
// from the trailing segment of the resource URL.
type ListEntry struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
	URL  string `json:"url"`
}

// Page is one page of the pokemon index. Count is the upstream catalog
// total, not the page length; Next and Previous are the upstream cursors
// and stay null at the catalog edges.
type Page struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []ListEntry `json:"results"`
}

// Client is a thin PokeAPI reader. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// normalizeName lowercases and trims a user-supplied subject name so lookups
// are case-insensitive.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{Kind: ErrTransport, Resource: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warnf("PokeAPI request failed: %s: %v", path, err)
		return &FetchError{Kind: ErrTransport, Resource: path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &FetchError{Kind: ErrNotFound, Resource: path, Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		c.logger.Warnf("PokeAPI returned status %d for %s", resp.StatusCode, path)
		return &FetchError{Kind: ErrUpstream, Resource: path, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Kind: ErrTransport, Resource: path, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Kind: ErrInvalidResponse, Resource: path, Err: err}
	}
	return nil
}

type rawPokemon struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Height         int    `json:"height"`
	Weight         int    `json:"weight"`
	BaseExperience int    `json:"base_experience"`
	Types          []struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Abilities []struct {
		Ability struct {
			Name string `json:"name"`
		} `json:"ability"`
	} `json:"abilities"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
	} `json:"sprites"`
}

// GetPokemon fetches a pokemon by name or numeric id.
func (c *Client) GetPokemon(ctx context.Context, name string) (*Pokemon, error) {
	var raw rawPokemon
	if err := c.get(ctx, "/pokemon/"+url.PathEscape(normalizeName(name)), &raw); err != nil {
		return nil, err
	}

	p := &Pokemon{
		ID:             raw.ID,
		Name:           raw.Name,
		Height:         raw.Height,
		Weight:         raw.Weight,
		BaseExperience: raw.BaseExperience,
		Stats:          make(map[string]int, len(raw.Stats)),
		Sprite:         raw.Sprites.FrontDefault,
	}
	for _, t := range raw.Types {
		p.Types = append(p.Types, t.Type.Name)
	}
	for _, a := range raw.Abilities {
		p.Abilities = append(p.Abilities, a.Ability.Name)
	}
	for _, s := range raw.Stats {
		p.Stats[s.Stat.Name] = s.BaseStat
		p.StatOrder = append(p.StatOrder, s.Stat.Name)
	}
	return p, nil
}

type rawSpecies struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	IsLegendary       bool   `json:"is_legendary"`
	IsMythical        bool   `json:"is_mythical"`
	CaptureRate       int    `json:"capture_rate"`
	Generation        struct {
		Name string `json:"name"`
	} `json:"generation"`
	Shape *struct {
		Name string `json:"name"`
	} `json:"shape"`
	FlavorTextEntries []struct {
		FlavorText string `json:"flavor_text"`
		Language   struct {
			Name string `json:"name"`
		} `json:"language"`
	} `json:"flavor_text_entries"`
	Habitat *struct {
		Name string `json:"name"`
	} `json:"habitat"`
	Color struct {
		Name string `json:"name"`
	} `json:"color"`
	Genera []struct {
		Genus    string `json:"genus"`
		Language struct {
			Name string `json:"name"`
		} `json:"language"`
	} `json:"genera"`
}

// GetSpecies fetches species flavor data for a pokemon.
func (c *Client) GetSpecies(ctx context.Context, name string) (*Species, error) {
	var raw rawSpecies
	if err := c.get(ctx, "/pokemon-species/"+url.PathEscape(normalizeName(name)), &raw); err != nil {
		return nil, err
	}

	sp := &Species{
		ID:          raw.ID,
		Name:        raw.Name,
		Generation:  raw.Generation.Name,
		IsLegendary: raw.IsLegendary,
		IsMythical:  raw.IsMythical,
		CaptureRate: raw.CaptureRate,
		Color:       raw.Color.Name,
	}
	if raw.Shape != nil {
		sp.Shape = raw.Shape.Name
	}
	if raw.Habitat != nil {
		sp.Habitat = raw.Habitat.Name
	}
	for _, e := range raw.FlavorTextEntries {
		if e.Language.Name == "en" {
			sp.FlavorText = cleanFlavorText(e.FlavorText)
			break
		}
	}
	for _, g := range raw.Genera {
		if g.Language.Name == "en" {
			sp.Genus = g.Genus
			break
		}
	}
	return sp, nil
}

// cleanFlavorText strips the control characters PokeAPI carries over from
// the original game text.
func cleanFlavorText(s string) string {
	replacer := strings.NewReplacer("\n", " ", "\f", " ", "­ ", "", "­", "")
	return strings.Join(strings.Fields(replacer.Replace(s)), " ")
}

type rawType struct {
	Name            string `json:"name"`
	DamageRelations struct {
		DoubleDamageTo []struct {
			Name string `json:"name"`
		} `json:"double_damage_to"`
		HalfDamageTo []struct {
			Name string `json:"name"`
		} `json:"half_damage_to"`
		NoDamageTo []struct {
			Name string `json:"name"`
		} `json:"no_damage_to"`
	} `json:"damage_relations"`
}

// GetType fetches the damage relations for a type.
func (c *Client) GetType(ctx context.Context, name string) (*TypeRelations, error) {
	var raw rawType
	if err := c.get(ctx, "/type/"+url.PathEscape(normalizeName(name)), &raw); err != nil {
		return nil, err
	}

	tr := &TypeRelations{Name: raw.Name}
	for _, t := range raw.DamageRelations.DoubleDamageTo {
		tr.DoubleDamageTo = append(tr.DoubleDamageTo, t.Name)
	}
	for _, t := range raw.DamageRelations.HalfDamageTo {
		tr.HalfDamageTo = append(tr.HalfDamageTo, t.Name)
	}
	for _, t := range raw.DamageRelations.NoDamageTo {
		tr.NoDamageTo = append(tr.NoDamageTo, t.Name)
	}
	return tr, nil
}

type rawList struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"results"`
}

// ListPokemon fetches a page of the pokemon index. A non-positive limit
// falls back to the default; anything above MaxListLimit is clamped down.
func (c *Client) ListPokemon(ctx context.Context, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	path := fmt.Sprintf("/pokemon?limit=%d&offset=%d", limit, offset)
	var raw rawList
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}

	page := &Page{
		Count:    raw.Count,
		Next:     raw.Next,
		Previous: raw.Previous,
		Results:  make([]ListEntry, 0, len(raw.Results)),
	}
	for _, r := range raw.Results {
		page.Results = append(page.Results, ListEntry{
			Name: r.Name,
			ID:   idFromURL(r.URL),
			URL:  r.URL,
		})
	}
	return page, nil
}

// idFromURL extracts the numeric id from a resource URL like
// "https://pokeapi.co/api/v2/pokemon/25/". Returns 0 when no id is present.
func idFromURL(resourceURL string) int {
	trimmed := strings.TrimRight(resourceURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return 0
	}
	id, err := strconv.Atoi(trimmed[idx+1:])
	if err != nil {
		return 0
	}
	return id
}
