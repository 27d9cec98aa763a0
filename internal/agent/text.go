package agent

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "your": true, "you": true, "are": true, "was": true, "were": true,
	"will": true, "have": true, "has": true, "had": true, "not": true, "but": true,
	"can": true, "all": true, "any": true, "its": true, "into": true, "about": true,
	"than": true, "then": true, "them": true, "they": true, "their": true, "there": true,
	"what": true, "when": true, "which": true, "who": true, "how": true, "why": true,
	"our": true, "out": true, "also": true, "more": true, "most": true, "some": true,
	"such": true, "only": true, "over": true, "very": true, "just": true, "each": true,
	"source": true, "summary": true, "link": true, "https": true, "http": true, "www": true,
	"today": true, "day": true,
}

// Keywords returns the n most frequent non-stopword tokens of text, most
// frequent first and alphabetical within a count.
func Keywords(text string, n int) []string {
	counts := map[string]int{}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if utf8.RuneCountInString(w) < 3 && !hasHan(w) {
			continue
		}
		if stopwords[w] || isNumber(w) {
			continue
		}
		counts[w]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var insightMarkers = []string{"key insight:", "insight:", "tip:", "💡", "洞察：", "建议："}

// ExtractInsights returns up to n lines that start with an insight marker,
// with the marker removed.
func ExtractInsights(text string, n int) []string {
	var out []string
	seen := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*#> "))
		trimmed = strings.NewReplacer("**", "", "__", "").Replace(trimmed)
		for _, m := range insightMarkers {
			if len(trimmed) < len(m) || !strings.EqualFold(trimmed[:len(m)], m) {
				continue
			}
			insight := strings.TrimSpace(trimmed[len(m):])
			if insight != "" && !seen[insight] {
				seen[insight] = true
				out = append(out, insight)
			}
			break
		}
		if len(out) >= n {
			break
		}
	}
	return out
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
