// Package rollserver implements the roll service shared by the Telnet and gRPC
// frontends: macro expansion, rolling, history and metrics.
package rollserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/config"
	"github.com/cory-johannsen/dicebot/internal/dice"
	"github.com/cory-johannsen/dicebot/internal/history"
	"github.com/cory-johannsen/dicebot/internal/macro"
	"github.com/cory-johannsen/dicebot/internal/observability"
)

// Errors returned by Service alongside *dice.ParseError.
var (
	ErrFormulaTooLong = errors.New("formula too long")
	ErrUnknownMacro   = errors.New("unknown macro")
)

// AnonymousRoller names rolls submitted without a roller.
const AnonymousRoller = "anonymous"

// MacroPrefix introduces a macro reference, e.g. "@attack +2".
const MacroPrefix = "@"

type originKey struct{}

// WithOrigin tags ctx with the frontend a roll came from, for metrics.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

func originOf(ctx context.Context) string {
	if o, ok := ctx.Value(originKey{}).(string); ok && o != "" {
		return o
	}
	return "unknown"
}

// Service rolls formulas on behalf of named rollers and records the results.
type Service struct {
	roller           *dice.Roller
	macros           *macro.Library
	store            history.Store
	metrics          *observability.Metrics
	logger           *zap.Logger
	maxFormulaLength int
	historyLimit     int
	now              func() time.Time
}

// NewService creates a Service.
//
// Precondition: roller, macros, store and logger must be non-nil; metrics may be nil.
// Precondition: cfg.MaxFormulaLength and cfg.HistoryLimit must be >= 1.
func NewService(
	roller *dice.Roller,
	macros *macro.Library,
	store history.Store,
	metrics *observability.Metrics,
	cfg config.DiceConfig,
	logger *zap.Logger,
) *Service {
	if roller == nil || macros == nil || store == nil || logger == nil {
		panic("rollserver: NewService precondition violated: roller, macros, store and logger must be non-nil")
	}
	if cfg.MaxFormulaLength < 1 || cfg.HistoryLimit < 1 {
		panic("rollserver: NewService precondition violated: limits must be >= 1")
	}
	return &Service{
		roller:           roller,
		macros:           macros,
		store:            store,
		metrics:          metrics,
		logger:           logger,
		maxFormulaLength: cfg.MaxFormulaLength,
		historyLimit:     cfg.HistoryLimit,
		now:              time.Now,
	}
}

// Roll expands macros in formula, rolls it, and records the result under roller.
//
// Postcondition: Returns the stored Record, or ErrFormulaTooLong, ErrUnknownMacro,
// a *dice.ParseError, or a storage error.
func (s *Service) Roll(ctx context.Context, roller, formula string) (history.Record, error) {
	start := time.Now()
	if len(formula) > s.maxFormulaLength {
		return history.Record{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrFormulaTooLong, len(formula), s.maxFormulaLength)
	}
	if roller = strings.TrimSpace(roller); roller == "" {
		roller = AnonymousRoller
	}

	expanded, err := s.Expand(formula)
	if err != nil {
		return history.Record{}, err
	}
	tree, err := dice.Parse(expanded)
	if err != nil {
		s.metrics.RecordParseError(dice.ErrorKind(err))
		s.logger.Debug("rejected formula",
			zap.String("roller", roller),
			zap.String("formula", formula),
			zap.Error(err),
		)
		return history.Record{}, err
	}
	result := s.roller.Roll(formula, tree)

	rec := history.Record{
		ID:        uuid.New(),
		Roller:    roller,
		Formula:   result.Formula,
		Canonical: result.Canonical,
		Results:   result.Results,
		Total:     result.Total,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Append(ctx, rec); err != nil {
		return history.Record{}, fmt.Errorf("recording roll: %w", err)
	}
	s.metrics.RecordRoll(originOf(ctx), dice.DiceRolled(tree), time.Since(start))
	return rec, nil
}

// Expand resolves a leading "@name" macro reference. Text after the name is
// appended as extra terms. Formulas without the prefix are returned unchanged.
func (s *Service) Expand(formula string) (string, error) {
	trimmed := strings.TrimSpace(formula)
	if !strings.HasPrefix(trimmed, MacroPrefix) {
		return formula, nil
	}
	body := trimmed[len(MacroPrefix):]
	end := strings.IndexFunc(body, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("+-,(", r)
	})
	if end < 0 {
		end = len(body)
	}
	name, rest := body[:end], strings.TrimSpace(body[end:])
	m, ok := s.macros.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMacro, name)
	}
	if rest == "" {
		return m.Formula, nil
	}
	return m.Formula + ", " + rest, nil
}

// History returns roller's most recent rolls, newest first. A limit outside
// [1, history_limit] is clamped to history_limit.
func (s *Service) History(ctx context.Context, roller string, limit int) ([]history.Record, error) {
	if roller = strings.TrimSpace(roller); roller == "" {
		roller = AnonymousRoller
	}
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	recs, err := s.store.Recent(ctx, roller, limit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return recs, nil
}

// Macros returns every configured macro sorted by name.
func (s *Service) Macros() []macro.Macro {
	return s.macros.All()
}
