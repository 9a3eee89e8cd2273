package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// minAmountThreshold separates money answers from stray day/month
// numbers: a bare "15" in an amount answer is more likely the 15th than
// fifteen won.
const minAmountThreshold = 1000

// koreanUnits maps amount unit characters to their multipliers.
var koreanUnits = map[string]int64{
	"천": 1_000,
	"만": 10_000,
	"억": 100_000_000,
	"조": 1_000_000_000_000,
}

var (
	reAmountWon  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(만|억|조)?\s*원`)
	reAmountUnit = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(천|만|억|조)`)
	reDigits     = regexp.MustCompile(`\d+`)
)

// ExtractAmount finds a monetary amount in Korean text and returns it
// in won, or nil when no amount pattern matches.
func ExtractAmount(text string) *int64 {
	for _, re := range []*regexp.Regexp{reAmountWon, reAmountUnit} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		number, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		amount := int64(number)
		if mult, ok := koreanUnits[m[2]]; ok {
			amount = int64(number * float64(mult))
		}
		return &amount
	}
	return nil
}

// AmountFromAnswer interprets a direct answer to an amount question.
// Negative answers ("모름", "없어요") return nil so the field moves on.
// Bare digits below the threshold are rejected as likely date fragments.
func AmountFromAnswer(answer string) *int64 {
	if IsNegativeAnswer(answer) {
		return nil
	}

	if amount := ExtractAmount(answer); amount != nil {
		return amount
	}

	// Unit-less fallback: expand 만/천 suffixes and take the first
	// number, e.g. "500만" -> 5000000, "300,000" -> 300000.
	expanded := strings.NewReplacer(",", "", "만", "0000", "천", "000").Replace(answer)
	if m := reDigits.FindString(expanded); m != "" {
		if n, err := strconv.ParseInt(m, 10, 64); err == nil && n >= minAmountThreshold {
			return &n
		}
	}
	return nil
}

// negativeAnswers are expressions meaning the user cannot provide the
// value.
var negativeAnswers = []string{
	"모름", "없음", "없어", "없습니다", "모르겠", "알 수 없", "알수없", "불명",
}

// IsNegativeAnswer reports whether the answer declines to provide a
// value.
func IsNegativeAnswer(answer string) bool {
	s := strings.ToLower(strings.TrimSpace(answer))
	for _, kw := range negativeAnswers {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
