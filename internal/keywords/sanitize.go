package keywords

import "strings"

// DefaultKeywords is used when extraction yields nothing. None of the entries
// may contain the literal word "keywords".
var DefaultKeywords = []string{
	"cardiology",
	"cardiovascular",
	"ecg",
	"myocardial infarction",
	"acute coronary syndrome",
	"ischemia",
	"arrhythmia",
	"heart failure",
	"troponin",
	"reperfusion",
	"st elevation",
	"st depression",
	"posterior mi",
	"stemi",
	"nstemi",
}

// Sanitize trims the candidates, drops empty entries and anything that looks
// like a keywords header, removes exact duplicates (case-sensitive, as
// extracted) and caps the list at k. An empty result is replaced by defaults
// capped at k.
func Sanitize(candidates []string, k int, defaults []string) []string {
	if k <= 0 {
		return nil
	}
	out := clean(candidates, k)
	if len(out) == 0 {
		out = clean(defaults, k)
	}
	return out
}

func clean(candidates []string, k int) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, min(k, len(candidates)))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		lower := strings.ToLower(c)
		if lower == "keywords" || strings.HasPrefix(lower, "keywords:") {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if len(out) == k {
			break
		}
	}
	return out
}
