package scalar

import (
	"errors"

	"github.com/shopspring/decimal"
)

// All values are 18-decimal fixed-point quantities. Every formula performs
// exactly one division, truncated (or ceiled) to 18 fractional digits, so
// results are bit-exact regardless of call order.

var (
	ErrInvalidScalarInput = errors.New("scalar: invalid input")
	ErrDivisionByZero     = errors.New("scalar: division by zero")
)

const precision = 18

var (
	one  = decimal.New(1, 0)
	five = decimal.New(5, 0)
	four = decimal.New(4, 0)
	ulp  = decimal.New(1, -precision)
)

// Case identifies which closed-form multiplier applies to a
// (gains, losses) state.
type Case int

const (
	// Case1: gains cover losses; multiplier grows linearly with the surplus.
	Case1 Case = iota + 1
	// Case2: net loss below one unit; multiplier shrinks linearly.
	Case2
	// Case3: net loss of exactly one unit; multiplier pinned at 1/5.
	Case3
	// Case4: net loss beyond one unit; multiplier decays hyperbolically.
	Case4
)

func (c Case) String() string {
	switch c {
	case Case1:
		return "case1"
	case Case2:
		return "case2"
	case Case3:
		return "case3"
	case Case4:
		return "case4"
	}
	return "unknown"
}

// Classify maps a (gains, losses) pair to its case and delta. Delta is the
// absolute net move: gains-losses for Case1, losses-gains otherwise.
func Classify(gains, losses decimal.Decimal) (Case, decimal.Decimal) {
	if losses.Cmp(gains) <= 0 {
		return Case1, gains.Sub(losses)
	}
	d := losses.Sub(gains)
	switch d.Cmp(one) {
	case -1:
		return Case2, d
	case 0:
		return Case3, d
	default:
		return Case4, d
	}
}

// multiplier returns the case multiplier as an exact rational so that the
// division can be deferred to the caller's single rounding point.
func multiplier(c Case, delta decimal.Decimal) (num, den decimal.Decimal) {
	switch c {
	case Case1:
		return one.Add(delta), one
	case Case2:
		return five.Sub(four.Mul(delta)), five
	case Case3:
		return one, five
	default:
		return one, five.Mul(delta)
	}
}

// ComputeScalar derives the price-adjustment scalar for realizing part of a
// portfolio's unrealized result. The state before realization is (gains,
// losses); the state after subtracts realized from the gain side when
// realizedIsGain, otherwise from the loss side. The scalar is the ratio of the
// two case multipliers, computed in a single division: ceiled to 18 digits
// when roundUp, truncated otherwise.
func ComputeScalar(gains, losses, realized decimal.Decimal, realizedIsGain, roundUp bool) (decimal.Decimal, error) {
	if gains.IsNegative() || losses.IsNegative() || realized.IsNegative() {
		return decimal.Zero, ErrInvalidScalarInput
	}

	gainsAfter, lossesAfter := gains, losses
	if realizedIsGain {
		gainsAfter = gains.Sub(realized)
	} else {
		lossesAfter = losses.Sub(realized)
	}
	if gainsAfter.IsNegative() || lossesAfter.IsNegative() {
		return decimal.Zero, ErrInvalidScalarInput
	}

	beforeCase, beforeDelta := Classify(gains, losses)
	afterCase, afterDelta := Classify(gainsAfter, lossesAfter)

	n1, d1 := multiplier(beforeCase, beforeDelta)
	n2, d2 := multiplier(afterCase, afterDelta)

	num := n1.Mul(d2)
	den := d1.Mul(n2)
	if den.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}

	q, r := num.QuoRem(den, precision)
	if roundUp && !r.IsZero() {
		q = q.Add(ulp)
	}
	return q, nil
}

// TokenPriceMultiplier returns the case multiplier for a (gains, losses)
// state as a truncated 18-digit decimal. Used for mark-to-market pricing of
// a performance token.
func TokenPriceMultiplier(gains, losses decimal.Decimal) (decimal.Decimal, error) {
	if gains.IsNegative() || losses.IsNegative() {
		return decimal.Zero, ErrInvalidScalarInput
	}
	c, delta := Classify(gains, losses)
	num, den := multiplier(c, delta)
	if den.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	q, _ := num.QuoRem(den, precision)
	return q, nil
}
