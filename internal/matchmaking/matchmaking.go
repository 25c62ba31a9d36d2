// Package matchmaking selects one eligible pair of rated agents for a new
// battle: close in Elo, framework-compatible, with a randomized tie-break
// among the closest candidates.
package matchmaking

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/zulandar/arena/internal/models"
	"gorm.io/gorm"
)

// Selection failure classes, distinguishable with errors.Is.
var (
	ErrNoRatings           = errors.New("matchmaking: no ratings exist")
	ErrInsufficientAgents  = errors.New("matchmaking: fewer than two eligible agents")
	ErrNoValidMatchup      = errors.New("matchmaking: no pair within the elo window")
	ErrNoCompatibleMatchup = errors.New("matchmaking: no framework-compatible pair")
)

// shortlistSize is how many of the closest-Elo candidates the random
// tie-break draws from.
const shortlistSize = 3

// Config controls pair selection. Zero values fall back to defaults via
// applyDefaults, so callers can override only what they need.
type Config struct {
	// MaxEloDifference is the widest rating gap allowed in a pair.
	MaxEloDifference float64
	// EligibleAgents lists substrings; an agent type must contain at least
	// one of them to enter the pool.
	EligibleAgents []string
	// RequiredAgent, when non-empty, forces one side of the pair to an
	// agent type containing this substring. That side is returned as A.
	RequiredAgent string
	// PreferSameFramework restricts the candidate set to same-framework
	// pairs whenever at least one survives the other filters.
	PreferSameFramework bool
	// Intn supplies randomness for the shortlist draw. Tests inject a
	// deterministic source; nil means math/rand.
	Intn func(n int) int
}

// DefaultConfig returns the production selection policy.
func DefaultConfig() Config {
	return Config{
		MaxEloDifference:    200,
		EligibleAgents:      []string{"browser-use", "notte", "skyvern"},
		PreferSameFramework: true,
	}
}

func (c *Config) applyDefaults() {
	if c.MaxEloDifference <= 0 {
		c.MaxEloDifference = 200
	}
	if len(c.EligibleAgents) == 0 {
		c.EligibleAgents = DefaultConfig().EligibleAgents
	}
	if c.Intn == nil {
		c.Intn = rand.Intn
	}
}

// Agent is one side of a proposed match.
type Agent struct {
	AgentType string
	Model     string
	EloRating float64
	Framework string
}

// Match is a proposed pairing. SameFramework reports whether both sides
// derive the same framework tag.
type Match struct {
	AgentA        Agent
	AgentB        Agent
	SameFramework bool
	EloDifference float64
}

// knownFrameworks are matched as substrings, in order, when deriving a
// framework tag from an agent type.
var knownFrameworks = []string{"browser-use", "notte", "skyvern"}

// Framework derives the coarse framework tag for an agent type: the first
// known framework whose name the type contains, else the prefix before the
// first "/" or "-", else the whole type.
func Framework(agentType string) string {
	for _, fw := range knownFrameworks {
		if strings.Contains(agentType, fw) {
			return fw
		}
	}
	if i := strings.IndexAny(agentType, "/-"); i > 0 {
		return agentType[:i]
	}
	return agentType
}

type candidate struct {
	a, b models.Rating
	gap  float64
	same bool
}

// Find selects one eligible pair from the current ratings table. It is
// read-only; a concurrent vote may invalidate the snapshot it pairs from,
// which is acceptable for matchmaking.
func Find(db *gorm.DB, cfg Config) (*Match, error) {
	cfg.applyDefaults()

	var ratings []models.Rating
	if err := db.Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("matchmaking: fetch ratings: %w", err)
	}
	if len(ratings) == 0 {
		return nil, ErrNoRatings
	}

	eligible := filterEligible(ratings, cfg.EligibleAgents)
	if len(eligible) < 2 {
		return nil, fmt.Errorf("%w: %d of %d ratings eligible",
			ErrInsufficientAgents, len(eligible), len(ratings))
	}

	pairs, err := generatePairs(eligible, cfg.RequiredAgent)
	if err != nil {
		return nil, err
	}

	// Elo window.
	var inWindow []candidate
	for _, p := range pairs {
		if p.gap <= cfg.MaxEloDifference {
			inWindow = append(inWindow, p)
		}
	}
	if len(inWindow) == 0 {
		return nil, fmt.Errorf("%w: max difference %.0f", ErrNoValidMatchup, cfg.MaxEloDifference)
	}

	// Cross-framework pairs are only comparable when both sides run the
	// same model (or neither pins one).
	var compatible []candidate
	for _, p := range inWindow {
		if p.same || p.a.Model == p.b.Model {
			compatible = append(compatible, p)
		}
	}
	if len(compatible) == 0 {
		return nil, fmt.Errorf("%w: %d matchups excluded by model mismatch",
			ErrNoCompatibleMatchup, len(inWindow))
	}

	if cfg.PreferSameFramework {
		var same []candidate
		for _, p := range compatible {
			if p.same {
				same = append(same, p)
			}
		}
		if len(same) > 0 {
			compatible = same
		}
	}

	// Closest gaps first; draw uniformly from the top few so repeated
	// requests don't replay one deterministic matchup.
	sort.SliceStable(compatible, func(i, j int) bool {
		return compatible[i].gap < compatible[j].gap
	})
	n := shortlistSize
	if len(compatible) < n {
		n = len(compatible)
	}
	pick := compatible[cfg.Intn(n)]

	return &Match{
		AgentA:        toAgent(pick.a),
		AgentB:        toAgent(pick.b),
		SameFramework: pick.same,
		EloDifference: pick.gap,
	}, nil
}

func filterEligible(ratings []models.Rating, substrings []string) []models.Rating {
	var out []models.Rating
	for _, r := range ratings {
		for _, s := range substrings {
			if strings.Contains(r.AgentType, s) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// generatePairs builds the unordered candidate pairs. When requiredAgent is
// set, only required×other pairs are produced and the required side is A.
func generatePairs(eligible []models.Rating, requiredAgent string) ([]candidate, error) {
	var pairs []candidate

	if requiredAgent != "" {
		var required, others []models.Rating
		for _, r := range eligible {
			if strings.Contains(r.AgentType, requiredAgent) {
				required = append(required, r)
			} else {
				others = append(others, r)
			}
		}
		if len(required) == 0 {
			return nil, fmt.Errorf("%w: no agent matching %q", ErrInsufficientAgents, requiredAgent)
		}
		if len(others) == 0 {
			return nil, fmt.Errorf("%w: no opponent for required agent %q", ErrInsufficientAgents, requiredAgent)
		}
		for _, req := range required {
			for _, other := range others {
				pairs = append(pairs, newCandidate(req, other))
			}
		}
		return pairs, nil
	}

	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			pairs = append(pairs, newCandidate(eligible[i], eligible[j]))
		}
	}
	return pairs, nil
}

func newCandidate(a, b models.Rating) candidate {
	return candidate{
		a:    a,
		b:    b,
		gap:  math.Abs(a.EloRating - b.EloRating),
		same: Framework(a.AgentType) == Framework(b.AgentType),
	}
}

func toAgent(r models.Rating) Agent {
	return Agent{
		AgentType: r.AgentType,
		Model:     r.Model,
		EloRating: r.EloRating,
		Framework: Framework(r.AgentType),
	}
}
