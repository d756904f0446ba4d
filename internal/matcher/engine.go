package matcher

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnaf-matcher/internal/debug"
	"github.com/gnaf-matcher/internal/locality"
	"github.com/gnaf-matcher/internal/number"
	"github.com/gnaf-matcher/internal/parser"
	"github.com/gnaf-matcher/internal/postal"
	"github.com/gnaf-matcher/internal/reference"
	"github.com/gnaf-matcher/internal/street"
)

// Outcome is the terminal classification of one address.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeInvalid   Outcome = "invalid"
)

// Options tunes resolution.
type Options struct {
	// CandidateCeiling is the largest street candidate set that is looked up.
	CandidateCeiling int
	FuzzyMaxDistance int
	// CandidateParallelism caps concurrent lookups within one address.
	CandidateParallelism int
	// LookupBudget is shared across the candidates of one pass.
	LookupBudget     time.Duration
	MinLookupTimeout time.Duration
}

// DefaultOptions returns the standard resolution settings.
func DefaultOptions() Options {
	return Options{
		CandidateCeiling:     50,
		FuzzyMaxDistance:     3,
		CandidateParallelism: 8,
		LookupBudget:         30 * time.Second,
		MinLookupTimeout:     time.Second,
	}
}

// Input is one raw customer address.
type Input struct {
	ID       int64
	Line     string
	Line2    string
	Suburb   string
	State    string
	Postcode string
}

// Result is the resolution of one Input.
type Result struct {
	Input    Input
	Address  parser.Address
	State    *reference.State
	Locality *reference.Locality
	Method   locality.Method

	Outcome Outcome
	Matches []number.MatchResult
	// Pass names the widening step whose candidates were looked up.
	Pass string
	Tier street.Tier
	// TooManyCandidates is set when any pass exceeded the candidate ceiling.
	TooManyCandidates bool
	Err               error
}

// DetailIDs returns the matched detail ids in order.
func (r Result) DetailIDs() []string {
	ids := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		ids = append(ids, m.DetailID)
	}
	return ids
}

// pass is one step of the widening cascade.
type pass struct {
	name       string
	ignoreType bool
	allowFuzzy bool
}

var passes = []pass{
	{name: "strict"},
	{name: "ignore_type", ignoreType: true},
	{name: "fuzzy", ignoreType: true, allowFuzzy: true},
}

// Engine resolves addresses against a loaded reference index. It holds no
// per-address state and is safe for concurrent use.
type Engine struct {
	localities *locality.Resolver
	streets    *street.Resolver
	numbers    *number.Matcher
	store      number.Store
	postal     postal.Parser
	opts       Options
}

// NewEngine creates an engine. Zero option fields take their defaults.
func NewEngine(index *reference.Index, store number.Store, opts Options) *Engine {
	def := DefaultOptions()
	if opts.CandidateCeiling <= 0 {
		opts.CandidateCeiling = def.CandidateCeiling
	}
	if opts.FuzzyMaxDistance <= 0 {
		opts.FuzzyMaxDistance = def.FuzzyMaxDistance
	}
	if opts.CandidateParallelism <= 0 {
		opts.CandidateParallelism = def.CandidateParallelism
	}
	if opts.LookupBudget <= 0 {
		opts.LookupBudget = def.LookupBudget
	}
	if opts.MinLookupTimeout <= 0 {
		opts.MinLookupTimeout = def.MinLookupTimeout
	}
	return &Engine{
		localities: locality.NewResolver(index, opts.FuzzyMaxDistance),
		streets:    street.NewResolver(index, opts.FuzzyMaxDistance),
		numbers:    number.NewMatcher(store),
		store:      store,
		opts:       opts,
	}
}

// WithPostal sets a libpostal parser used to reshape lines the built-in
// parser rejects.
func (e *Engine) WithPostal(p postal.Parser) *Engine {
	e.postal = p
	return e
}

// Resolve runs one address through parsing, locality, street and number
// resolution. Failures are reported on the Result, never returned.
func (e *Engine) Resolve(ctx context.Context, localDebug bool, in Input) Result {
	defer debug.Timing(localDebug, "resolve")()

	res := Result{Input: in, Outcome: OutcomeUnmatched}
	res.Address = e.parse(in)
	addr := res.Address
	debug.Output(localDebug, "Parsed %q: street=%q number=%q valid=%v", in.Line, addr.Street, addr.NumberText, addr.Valid)

	if !addr.Valid {
		res.Outcome = OutcomeInvalid
		return res
	}
	if addr.MailService {
		return res
	}

	loc := e.localities.Resolve(addr.State, addr.Postcode, addr.Suburb)
	res.State, res.Locality, res.Method = loc.State, loc.Locality, loc.Method
	if loc.State == nil {
		debug.Output(localDebug, "No reference state for %q/%q", addr.State, addr.Postcode)
		return res
	}
	if loc.Locality != nil {
		debug.Output(localDebug, "Locality %s %s via %s", loc.Locality.ID, loc.Locality.Name, loc.Method)
	}

	if addr.PostBox {
		if loc.Locality == nil || !containsEither(addr.Suburb, loc.Locality.Name) {
			res.Outcome = OutcomeInvalid
		}
		return res
	}
	if loc.Locality == nil {
		return res
	}

	if addr.BuildingOnly {
		return e.resolveBuilding(ctx, res)
	}

	for _, p := range passes {
		found := e.streets.Resolve(street.Query{
			Locality:   loc.Locality,
			Text:       addr.Street,
			Number:     addr.HouseNumber(),
			IgnoreType: p.ignoreType,
			AllowFuzzy: p.allowFuzzy,
		})
		n := len(found.Streets)
		debug.Output(localDebug, "Pass %s: %d street candidates via %s", p.name, n, found.Tier)
		if n == 0 {
			continue
		}
		if n > e.opts.CandidateCeiling {
			res.TooManyCandidates = true
			zap.L().Info("matcher: too many candidates",
				zap.Int64("id", in.ID),
				zap.String("pass", p.name),
				zap.String("street", addr.Street),
				zap.Int("candidates", n),
			)
			continue
		}

		matches, err := e.lookup(ctx, found.Streets, addr)
		if err != nil {
			res.Err = err
			res.Matches = nil
			return res
		}
		res.Pass, res.Tier = p.name, found.Tier
		if len(matches) > 0 {
			res.Matches = matches
			break
		}
	}

	res.Outcome = classify(res.Matches)
	return res
}

// parse tries the first line, the second line, and finally a libpostal
// reshaping of the first line.
func (e *Engine) parse(in Input) parser.Address {
	line := parser.LocalityLine{Suburb: in.Suburb, State: in.State, Postcode: in.Postcode}
	addr := parser.Parse(line, in.Line)
	if addr.Valid {
		return addr
	}
	if strings.TrimSpace(in.Line2) != "" {
		if alt := parser.Parse(line, in.Line2); alt.Valid {
			return alt
		}
	}
	if e.postal != nil && strings.TrimSpace(in.Line) != "" {
		if rebuilt := postal.StreetLine(e.postal.Parse(in.Line)); rebuilt != "" {
			if alt := parser.Parse(line, rebuilt); alt.Valid && !alt.BuildingOnly {
				return alt
			}
		}
	}
	return addr
}

func (e *Engine) resolveBuilding(ctx context.Context, res Result) Result {
	cctx, cancel := context.WithTimeout(ctx, e.opts.LookupBudget)
	defer cancel()

	rec, err := e.store.FindBuilding(cctx, res.Locality.ID, res.Address.Building)
	switch {
	case err != nil && !isTimeout(err):
		res.Err = err
	case rec != nil:
		res.Matches = []number.MatchResult{{DetailID: rec.ID, Full: rec.Full}}
	}
	res.Outcome = classify(res.Matches)
	return res
}

// lookup runs the number matcher for every candidate concurrently and merges
// the per-candidate results. A timeout drops only its candidate; any other
// store error aborts the address.
func (e *Engine) lookup(ctx context.Context, streets []*reference.Street, addr parser.Address) ([]number.MatchResult, error) {
	timeout := e.candidateTimeout(len(streets))
	found := make([]*number.MatchResult, len(streets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.CandidateParallelism)
	for i, s := range streets {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			m, err := e.numbers.Match(cctx, s, addr)
			if err != nil {
				if isTimeout(err) {
					zap.L().Warn("matcher: lookup timeout", zap.String("street", s.ID), zap.Duration("timeout", timeout))
					return nil
				}
				return eris.Wrapf(err, "matcher: street %s", s.ID)
			}
			found[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Dedup(found), nil
}

// candidateTimeout splits the lookup budget across n candidates.
func (e *Engine) candidateTimeout(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	t := e.opts.LookupBudget / time.Duration(n)
	if t < e.opts.MinLookupTimeout {
		t = e.opts.MinLookupTimeout
	}
	return t
}

// Dedup collapses match results to one per detail id, ordered by id. The
// result does not depend on the order of the input.
func Dedup(found []*number.MatchResult) []number.MatchResult {
	byID := make(map[string]number.MatchResult, len(found))
	var ids []string
	for _, m := range found {
		if m == nil || m.DetailID == "" {
			continue
		}
		cur, ok := byID[m.DetailID]
		if !ok {
			ids = append(ids, m.DetailID)
			byID[m.DetailID] = *m
			continue
		}
		// Equal ids from different candidates keep the lowest street id.
		if m.Street != nil && (cur.Street == nil || m.Street.ID < cur.Street.ID) {
			byID[m.DetailID] = *m
		}
	}
	slices.Sort(ids)

	out := make([]number.MatchResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

func classify(matches []number.MatchResult) Outcome {
	switch len(matches) {
	case 0:
		return OutcomeUnmatched
	case 1:
		return OutcomeMatched
	default:
		return OutcomeAmbiguous
	}
}

func isTimeout(err error) bool {
	return eris.Is(err, number.ErrLookupTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
