package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swingops/profile"
)

func testPosition(asset, group string) *Position {
	return &Position{
		ID:      "01" + asset,
		Asset:   asset,
		Profile: profile.AssetProfile{Asset: asset, Class: profile.Equity, Group: group},
		State:   OpenFull,
		Entry:   100,
		Size:    10,
	}
}

func TestPortfolioAddAndRemove(t *testing.T) {
	t.Parallel()

	p := NewPortfolio(10000)
	require.NoError(t, p.Add(testPosition("AAPL", "technology")))

	assert.Equal(t, 1, p.OpenCount())
	assert.True(t, p.GroupOccupied("technology"))
	assert.InDelta(t, 9000, p.Balance(), 1e-9) // 10 units at 100 debited

	p.Remove("AAPL")
	assert.Equal(t, 0, p.OpenCount())
	assert.False(t, p.GroupOccupied("technology"))
}

func TestPortfolioGroupInvariant(t *testing.T) {
	t.Parallel()

	p := NewPortfolio(10000)
	require.NoError(t, p.Add(testPosition("AAPL", "technology")))

	err := p.Add(testPosition("MSFT", "technology"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "technology")
}

func TestPortfolioExposureCap(t *testing.T) {
	t.Parallel()

	p := NewPortfolio(100000)
	for i, asset := range []string{"AAPL", "GLD", "WTI", "EURUSD"} {
		require.NoError(t, p.Add(testPosition(asset, fmt.Sprintf("group-%d", i))))
	}

	err := p.Add(testPosition("GBPUSD", "group-5"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exposure cap")
}

func TestPortfolioDuplicateAsset(t *testing.T) {
	t.Parallel()

	p := NewPortfolio(10000)
	require.NoError(t, p.Add(testPosition("AAPL", "technology")))
	assert.Error(t, p.Add(testPosition("AAPL", "other")))
}

func TestPortfolioEquityMarks(t *testing.T) {
	t.Parallel()

	p := NewPortfolio(10000)
	require.NoError(t, p.Add(testPosition("AAPL", "technology")))

	// 9000 cash + 10 units marked at 105.
	assert.InDelta(t, 10050, p.Equity(map[string]float64{"AAPL": 105}), 1e-9)

	// No mark: carried at entry.
	assert.InDelta(t, 10000, p.Equity(nil), 1e-9)
}
