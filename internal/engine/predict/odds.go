package predict

import (
	"math"

	"github.com/jstittsworth/gridline/internal/models"
)

// ImpliedProbability converts American-format odds to an implied win probability.
func ImpliedProbability(odds int) float64 {
	if odds > 0 {
		return 100 / (float64(odds) + 100)
	}
	abs := math.Abs(float64(odds))
	return abs / (abs + 100)
}

// SpreadToProbability maps a home-perspective spread to a home win probability via
// the sport's logistic coefficient.
func SpreadToProbability(spread, coefficient float64) float64 {
	return 1 / (1 + math.Exp(-spread/coefficient))
}

// ProbabilityToSpread is the inverse logistic transform under the same coefficient.
func ProbabilityToSpread(p, coefficient float64) float64 {
	if p <= 0 {
		p = 1e-9
	}
	if p >= 1 {
		p = 1 - 1e-9
	}
	return coefficient * math.Log(p/(1-p))
}

// marketSpread derives a home-perspective market spread from the bookmaker
// payload. The posted spread is the home handicap (negative when home is
// favored), so it flips sign; with only moneylines, the renormalized implied home
// probability is pushed back through the inverse logistic.
func marketSpread(odds *models.OddsData, coefficient float64) *float64 {
	if odds == nil {
		return nil
	}
	if odds.Spread != nil {
		v := -*odds.Spread
		return &v
	}
	if odds.HomeMoneyline != nil && odds.AwayMoneyline != nil {
		pHome := ImpliedProbability(*odds.HomeMoneyline)
		pAway := ImpliedProbability(*odds.AwayMoneyline)
		if pHome+pAway <= 0 {
			return nil
		}
		// Strip the vig by renormalizing the pair to sum to 1
		p := pHome / (pHome + pAway)
		v := ProbabilityToSpread(p, coefficient)
		return &v
	}
	return nil
}

// marketTotal returns the bookmaker total when posted.
func marketTotal(odds *models.OddsData) *float64 {
	if odds == nil || odds.Total == nil {
		return nil
	}
	v := *odds.Total
	return &v
}
