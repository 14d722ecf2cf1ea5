package predict

import (
	"math"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/pkg/config"
)

// SpreadContext carries every signal a spread or total strategy may use. All
// inputs are resolved before the strategy runs, so strategies stay pure.
type SpreadContext struct {
	Profile     config.SportProfile
	HomeElo     float64
	AwayElo     float64
	HomeMetrics models.TeamEfficiencyMetric
	AwayMetrics models.TeamEfficiencyMetric
	HomeForm    FormSignal
	AwayForm    FormSignal
	HomeRest    float64
	AwayRest    float64

	// MLB starter ratings, zero when the sport has no pitcher ratings
	HomePitcherElo float64
	AwayPitcherElo float64
}

// SpreadStrategy is a pure function from context to a home-perspective spread and
// its per-component breakdown.
type SpreadStrategy func(ctx SpreadContext) (float64, map[string]float64)

// TotalStrategy is a pure function from context to a predicted game total.
type TotalStrategy func(ctx SpreadContext) float64

// spreadStrategyFor selects the sport's configured spread variant. Profiles are
// validated at construction, so an unknown name cannot reach here.
func spreadStrategyFor(profile config.SportProfile) SpreadStrategy {
	switch profile.SpreadStrategy {
	case config.SpreadStrategyEfficiencyBlend:
		return efficiencyBlendSpread
	default:
		return eloOnlySpread
	}
}

func totalStrategyFor(profile config.SportProfile) TotalStrategy {
	switch profile.TotalStrategy {
	case config.TotalStrategyPaceEfficiency:
		return paceEfficiencyTotal
	default:
		return leagueAverageTotal
	}
}

// eloOnlySpread converts the venue-boosted rating gap straight into points. The
// NFL/MLB variant; MLB additionally folds in the starter gap.
func eloOnlySpread(ctx SpreadContext) (float64, map[string]float64) {
	eloGap := (ctx.HomeElo + ctx.Profile.HomeAdvantage) - ctx.AwayElo
	spread := eloGap / ctx.Profile.EloToSpreadDivisor
	components := map[string]float64{"elo": spread}

	if ctx.Profile.PitcherRatings && ctx.Profile.PitcherSpreadDivisor > 0 {
		pitcher := (ctx.HomePitcherElo - ctx.AwayPitcherElo) / ctx.Profile.PitcherSpreadDivisor
		components["pitcher"] = pitcher
		spread += pitcher
	}

	return spread, components
}

// efficiencyBlendSpread is the basketball variant: a weighted blend of the Elo
// spread, adjusted-efficiency spread, recent form, venue splits, rest, and
// turnover/rebound margins. Model weights sum to 1 (enforced by profile
// validation); the market blend happens afterwards in the generator.
func efficiencyBlendSpread(ctx SpreadContext) (float64, map[string]float64) {
	w := ctx.Profile.Weights
	pace := expectedPace(ctx)

	eloSpread := ((ctx.HomeElo + ctx.Profile.HomeAdvantage) - ctx.AwayElo) / ctx.Profile.EloToSpreadDivisor

	efficiencySpread := (ctx.HomeMetrics.AdjNetRating - ctx.AwayMetrics.AdjNetRating) * pace / 100

	formSpread := ctx.HomeForm.Margin - ctx.AwayForm.Margin

	homeSplit := ctx.HomeMetrics.HomeOffensiveEfficiency - ctx.HomeMetrics.HomeDefensiveEfficiency
	awaySplit := ctx.AwayMetrics.AwayOffensiveEfficiency - ctx.AwayMetrics.AwayDefensiveEfficiency
	venueSpread := 0.0
	if ctx.HomeMetrics.HomeOffensiveEfficiency > 0 && ctx.AwayMetrics.AwayOffensiveEfficiency > 0 {
		venueSpread = (homeSplit - awaySplit) * pace / 100
	}

	restSpread := clamp(
		(ctx.HomeRest-ctx.AwayRest)*ctx.Profile.RestAdvantagePerDay,
		-ctx.Profile.MaxRestAdvantage,
		ctx.Profile.MaxRestAdvantage,
	)

	turnoverSpread := ctx.HomeForm.TurnoverMargin - ctx.AwayForm.TurnoverMargin
	reboundSpread := ctx.HomeForm.ReboundMargin - ctx.AwayForm.ReboundMargin

	components := map[string]float64{
		"elo":             eloSpread,
		"efficiency":      efficiencySpread,
		"recent_form":     formSpread,
		"venue_split":     venueSpread,
		"rest":            restSpread,
		"turnover_margin": turnoverSpread,
		"rebound_margin":  reboundSpread,
	}

	spread := w.Elo*eloSpread +
		w.Efficiency*efficiencySpread +
		w.RecentForm*formSpread +
		w.VenueSplit*venueSpread +
		w.Rest*restSpread +
		w.TurnoverMargin*turnoverSpread +
		w.ReboundMargin*reboundSpread

	return spread, components
}

// leagueAverageTotal anchors the total at the league scoring environment, shaded
// by how the two offenses rate against it.
func leagueAverageTotal(ctx SpreadContext) float64 {
	base := 2 * ctx.Profile.DefaultEfficiency * ctx.Profile.AveragePace / 100
	offenseShade := (ctx.HomeMetrics.AdjOffensiveEfficiency + ctx.AwayMetrics.AdjOffensiveEfficiency - 2*ctx.Profile.DefaultEfficiency) / 100 * ctx.Profile.AveragePace
	return base + offenseShade
}

// paceEfficiencyTotal projects each side's points from the expected pace and the
// matchup of its offense against the opponent's defense.
func paceEfficiencyTotal(ctx SpreadContext) float64 {
	pace := expectedPace(ctx)
	homePoints := pace * (ctx.HomeMetrics.AdjOffensiveEfficiency + ctx.AwayMetrics.AdjDefensiveEfficiency) / 2 / 100
	awayPoints := pace * (ctx.AwayMetrics.AdjOffensiveEfficiency + ctx.HomeMetrics.AdjDefensiveEfficiency) / 2 / 100
	return homePoints + awayPoints
}

func expectedPace(ctx SpreadContext) float64 {
	pace := (ctx.HomeMetrics.AdjTempo + ctx.AwayMetrics.AdjTempo) / 2
	if pace <= 0 {
		pace = ctx.Profile.AveragePace
	}
	return pace
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
