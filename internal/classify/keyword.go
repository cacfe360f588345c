package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/campusfix/dispatch/internal/models"
)

// KeywordClassifier is the deterministic fallback used when no classification
// service is configured.
type KeywordClassifier struct {
	Buildings []string
}

var tradeKeywords = []struct {
	trade models.Trade
	words []string
}{
	{models.TradeSafetyHazard, []string{"fire", "smoke", "gas smell", "smell of gas", "carbon monoxide", "hazard"}},
	{models.TradeElectrical, []string{"outlet", "power", "light", "breaker", "spark", "wiring", "electrical", "socket"}},
	{models.TradePlumbing, []string{"leak", "toilet", "sink", "pipe", "drain", "faucet", "flood", "water"}},
	{models.TradeHVAC, []string{"heat", "heating", "radiator", "air conditioning", "ac ", "a/c", "ventilation", "too cold", "too hot", "hvac", "thermostat"}},
	{models.TradeStructural, []string{"crack", "ceiling", "wall", "stairs", "floorboard", "door frame", "window frame", "roof"}},
	{models.TradeLandscaping, []string{"tree", "lawn", "snow", "ice on", "path", "branch", "grass"}},
	{models.TradeCustodial, []string{"trash", "spill", "dirty", "clean", "garbage", "vomit", "restroom supplies"}},
}

var (
	criticalWords = []string{"emergency", "fire", "smoke", "flood", "sparks", "gas smell", "smell of gas", "collapsed", "injur"}
	highWords     = []string{"urgent", "asap", "leak", "no heat", "no power", "broken", "not working"}
	lowWords      = []string{"cosmetic", "whenever", "minor", "no rush"}
	safetyWords   = []string{"fire", "smoke", "spark", "exposed wire", "shock", "gas", "collapse", "fell", "injur", "slippery", "carbon monoxide"}

	roomPattern  = regexp.MustCompile(`(?i)\broom\s+([a-z]?\d+[a-z]?)\b`)
	floorPattern = regexp.MustCompile(`(?i)\b(?:(\d+)(?:st|nd|rd|th)\s+floor|floor\s+(\d+))\b`)
)

func (k KeywordClassifier) Classify(ctx context.Context, e Email) (Result, error) {
	text := strings.ToLower(e.Subject + " " + e.Body + " ")

	res := Result{
		Trade:    models.TradeCustodial,
		Priority: models.PriorityMedium,
		Summary:  strings.TrimSpace(e.Subject),
	}
	if res.Summary == "" {
		res.Summary = firstLine(e.Body)
	}

	for _, tk := range tradeKeywords {
		if containsAny(text, tk.words) {
			res.Trade = tk.trade
			break
		}
	}

	switch {
	case containsAny(text, criticalWords):
		res.Priority = models.PriorityCritical
	case containsAny(text, highWords):
		res.Priority = models.PriorityHigh
	case containsAny(text, lowWords):
		res.Priority = models.PriorityLow
	}

	res.SafetyConcern = res.Trade == models.TradeSafetyHazard || containsAny(text, safetyWords)

	for _, b := range k.Buildings {
		if strings.Contains(text, strings.ToLower(b)) {
			res.Building = b
			break
		}
	}
	if m := roomPattern.FindStringSubmatch(e.Subject + " " + e.Body); m != nil {
		res.Room = strings.ToUpper(m[1])
	}
	if m := floorPattern.FindStringSubmatch(e.Subject + " " + e.Body); m != nil {
		res.Floor = m[1]
		if res.Floor == "" {
			res.Floor = m[2]
		}
	}

	res.SuggestedAction = "Inspect and resolve " + string(res.Trade) + " issue"
	if res.SafetyConcern {
		res.SuggestedAction = "Secure the area, then inspect " + string(res.Trade) + " issue"
	}
	return res, nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
