// Package fixedpoint implements the exact integer arithmetic used by the pool.
// Every division floors, so results never favor the caller over the pool.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrDivisionByZero     = errors.New("division by zero")
)

// WideRatio returns floor(product(numerators) / product(denominators)).
// Products are computed in 256 bits; the quotient must fit in a uint64.
func WideRatio(numerators, denominators []uint64) (uint64, error) {
	num, err := product(numerators)
	if err != nil {
		return 0, err
	}
	for _, d := range denominators {
		if d == 0 {
			return 0, ErrDivisionByZero
		}
	}
	den, err := product(denominators)
	if err != nil {
		return 0, err
	}

	q := new(uint256.Int).Div(num, den)
	if !q.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return q.Uint64(), nil
}

func product(factors []uint64) (*uint256.Int, error) {
	acc := uint256.NewInt(1)
	for _, f := range factors {
		if _, overflow := acc.MulOverflow(acc, uint256.NewInt(f)); overflow {
			return nil, ErrArithmeticOverflow
		}
	}
	return acc, nil
}

// ISqrt returns floor(sqrt(x)). x is expected to be at most 128 bits wide,
// which keeps the root inside a uint64.
func ISqrt(x *uint256.Int) uint64 {
	if x == nil || x.IsZero() {
		return 0
	}
	root := new(uint256.Int).Sqrt(x)
	return root.Uint64()
}

// MulSqrt returns floor(sqrt(a*b)) without overflowing the product.
func MulSqrt(a, b uint64) uint64 {
	p := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return ISqrt(p)
}

func CheckedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedSub reports underflow as ErrArithmeticOverflow.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrArithmeticOverflow
	}
	return a - b, nil
}

func CheckedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a {
		return 0, ErrArithmeticOverflow
	}
	return p, nil
}

func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
