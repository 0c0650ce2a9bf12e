package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"cpamm/internal/fixedpoint"
)

func TestQuoteWithRatio(t *testing.T) {
	out, ratio, err := quoteWithRatio(500, 10_000, 3_000)
	require.NoError(t, err)
	require.Equal(t, uint64(142), out)
	require.Equal(t, uint64(10_500*1000/2_858), ratio)
}

func TestQuoteWithRatioOverflow(t *testing.T) {
	_, _, err := quoteWithRatio(1000, math.MaxUint64-10, 1_000_000)
	require.ErrorIs(t, err, fixedpoint.ErrArithmeticOverflow)

	_, _, err = quoteWithRatio(math.MaxUint64, 1_000_000, 1_000_000)
	require.ErrorIs(t, err, fixedpoint.ErrArithmeticOverflow)
}
