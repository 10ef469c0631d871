package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with formula, canonical form and total;
// parse failures are logged at debug level with the failure kind.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source returns the Source the Roller draws from.
func (r *Roller) Source() Source { return r.src }

// Roll evaluates tree and logs the result at debug level.
//
// Precondition: tree must come from Parse.
func (r *Roller) Roll(formula string, tree *Group) RollResult {
	result := Roll(formula, tree, r.src)
	r.logger.Debug("dice roll",
		zap.String("formula", result.Formula),
		zap.String("canonical", result.Canonical),
		zap.String("results", result.Results),
		zap.Int("dice", DiceRolled(tree)),
		zap.Int("total", result.Total),
	)
	return result
}

// RollFormula parses formula and rolls it, logging the result.
//
// Postcondition: Returns a RollResult or a *ParseError.
func (r *Roller) RollFormula(formula string) (RollResult, error) {
	tree, err := Parse(formula)
	if err != nil {
		r.logger.Debug("dice parse failed",
			zap.String("formula", formula),
			zap.String("kind", ErrorKind(err)),
			zap.Error(err),
		)
		return RollResult{}, err
	}
	return r.Roll(formula, tree), nil
}
