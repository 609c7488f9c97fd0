package core

import (
	"regexp"
	"strings"
)

// Common quote currencies in order of priority for detection
var quoteCurrencies = []string{"USDT", "USDC", "USD", "EUR", "GBP", "JPY", "BTC", "XBT", "ETH"}

var validPair = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// NormalizePair converts "eth/usd", "ETH-USD" or "eth_usd" into "ETHUSD".
func NormalizePair(input string) string {
	s := strings.ToUpper(strings.TrimSpace(input))
	return strings.NewReplacer("-", "", "/", "", "_", "", " ", "").Replace(s)
}

// ValidatePair checks that a pair identifier has a valid format.
func ValidatePair(pair string) error {
	if strings.TrimSpace(pair) == "" {
		return Errorf(ErrConfigInvalid, "pair cannot be empty")
	}
	if len(pair) > 30 {
		return Errorf(ErrConfigInvalid, "pair too long: %s", pair)
	}
	if !validPair.MatchString(NormalizePair(pair)) {
		return Errorf(ErrConfigInvalid, "invalid pair format: %s", pair)
	}
	return nil
}

// SplitPair extracts base and quote from a normalized pair.
// "ETHUSD" -> ("ETH", "USD"). The quote is empty when none is recognised.
func SplitPair(pair string) (base, quote string) {
	s := NormalizePair(pair)
	for _, q := range quoteCurrencies {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	return s, ""
}
