package telegram

import "strings"

// queryIntent classifies what a plain-text message is asking for.
type queryIntent int

const (
	intentNone queryIntent = iota
	intentPrice
	intentAnalysis
	intentChart
)

// companySymbols maps common company names to tickers so "price of Apple"
// works without the user knowing the symbol.
var companySymbols = map[string]string{
	"apple":     "AAPL",
	"tesla":     "TSLA",
	"microsoft": "MSFT",
	"google":    "GOOGL",
	"alphabet":  "GOOGL",
	"amazon":    "AMZN",
	"meta":      "META",
	"facebook":  "META",
	"nvidia":    "NVDA",
	"netflix":   "NFLX",
	"bitcoin":   "BTC",
	"ethereum":  "ETH",
}

var intentWords = map[string]queryIntent{
	"price":    intentPrice,
	"cost":     intentPrice,
	"worth":    intentPrice,
	"value":    intentPrice,
	"trading":  intentPrice,
	"quote":    intentPrice,
	"analyze":  intentAnalysis,
	"analysis": intentAnalysis,
	"review":   intentAnalysis,
	"buy":      intentAnalysis,
	"sell":     intentAnalysis,
	"chart":    intentChart,
	"graph":    intentChart,
	"plot":     intentChart,
}

// detectQuery extracts a ticker and an intent from a free-text message.
// Company names win over raw uppercase tickers; a ticker with no intent
// word defaults to a price lookup. Returns intentNone when no ticker is
// recognised.
func detectQuery(text string) (queryIntent, string) {
	intent := intentNone
	var named, ticker string

	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:'\"()")
		if word == "" {
			continue
		}
		lower := strings.ToLower(word)
		if in, ok := intentWords[lower]; ok && intent == intentNone {
			intent = in
			continue
		}
		if sym, ok := companySymbols[lower]; ok && named == "" {
			named = sym
		} else if ticker == "" && looksLikeTicker(word) {
			ticker = word
		}
	}

	symbol := named
	if symbol == "" {
		symbol = ticker
	}
	if symbol == "" {
		return intentNone, ""
	}
	if intent == intentNone {
		intent = intentPrice
	}
	return intent, symbol
}

// looksLikeTicker reports whether a word is an explicit uppercase symbol.
// Single letters are excluded so "I" and sentence-initial "A" do not
// shadow the real subject of the question.
func looksLikeTicker(word string) bool {
	if len(word) < 2 || len(word) > 5 {
		return false
	}
	for _, r := range word {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
