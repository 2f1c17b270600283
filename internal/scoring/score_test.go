package scoring

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-parlor/internal/domain"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSubScore(t *testing.T) {
	assert.Equal(t, NeutralSubScore, SubScore(0))
	assert.Equal(t, 0.5, SubScore(0.5))
	assert.Equal(t, 10.0, SubScore(10))
}

func TestComputeScore_FreshRelease(t *testing.T) {
	// 8*0.4 + 6*0.3 + 10*0.3 = 3.2 + 1.8 + 3.0
	score := ComputeScore(8, 6, now, now)
	assert.Equal(t, 8.0, score)
	assert.Equal(t, domain.TierHigh3, Classify(score))
}

func TestComputeScore_TenDaysOld(t *testing.T) {
	// recency = 10 - 10/30 = 9.667 -> 2.9 weighted; total 7.9
	release := now.AddDate(0, 0, -10)
	score := ComputeScore(8, 6, release, now)
	assert.Equal(t, 7.9, score)
	assert.Equal(t, domain.TierHigh4, Classify(score))
}

func TestComputeScore_OldRelease(t *testing.T) {
	// 300+ days old: recency clamps to 0
	release := now.AddDate(-2, 0, 0)
	score := ComputeScore(5, 5, release, now)
	assert.Equal(t, 3.5, score)
}

func TestComputeScore_FutureRelease(t *testing.T) {
	// Future dates cap recency at 10
	release := now.AddDate(0, 1, 0)
	assert.Equal(t, 10.0, RecencyScore(release, now))
}

func TestComputeScore_Deterministic(t *testing.T) {
	release := now.AddDate(0, 0, -45)
	a := ComputeScore(7.3, 4.1, release, now)
	b := ComputeScore(7.3, 4.1, release, now)
	assert.Equal(t, a, b)
}

func TestComputeScore_Range(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 2000; i++ {
		spec := r.Float64() * 10
		ip := r.Float64() * 10
		release := now.AddDate(0, 0, -r.IntN(2000)+100)

		score := ComputeScore(spec, ip, release, now)
		require.GreaterOrEqual(t, score, MinScore)
		require.LessOrEqual(t, score, MaxScore)
		// one decimal place
		assert.InDelta(t, score, Round1(score), 1e-9)
	}
}

func TestBreakdown_PartsSumToTotal(t *testing.T) {
	b := DefaultWeights().Breakdown(8, 6, now.AddDate(0, 0, -60), now)
	assert.Equal(t, 60, b.DaysSince)
	assert.InDelta(t, 8.0, b.RecencyScore, 1e-9)
	assert.InDelta(t, b.Total, Round1(b.Spec+b.IP+b.Recency), 1e-9)
}

func TestRound1_HalfUp(t *testing.T) {
	assert.Equal(t, 0.1, Round1(0.05))
	assert.Equal(t, 2.5, Round1(2.45))
	assert.Equal(t, -0.1, Round1(-0.15))
	assert.Equal(t, 7.0, Round1(6.99))
}

func TestDaysSince_Floors(t *testing.T) {
	assert.Equal(t, 0, DaysSince(now.Add(-23*time.Hour), now))
	assert.Equal(t, 1, DaysSince(now.Add(-25*time.Hour), now))
}
