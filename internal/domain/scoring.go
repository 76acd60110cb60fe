package domain

import (
	"sort"
	"strings"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// Exact title match bonus (huge boost)
	ScoreExactTitleBonus = 200.0

	// Hostname matches count for less than title matches
	HostnameWeight = 0.8
)

// Candidate is an entry with its quick-jump score.
type Candidate struct {
	Entry Entry
	Score float64
}

// ScoreEntry scores an entry against a quick-jump query. The best of the
// title score and the (down-weighted) hostname score wins.
func ScoreEntry(queryStr string, e Entry) float64 {
	queryStr = strings.ToLower(strings.TrimSpace(queryStr))
	if queryStr == "" {
		return 0.0
	}

	title := strings.ToLower(e.Title)
	if queryStr == title {
		return ScoreExactMatch + ScoreExactTitleBonus
	}

	best := scoreText(queryStr, title)
	if host := strings.TrimPrefix(strings.ToLower(e.Hostname()), "www."); host != "" {
		if s := scoreText(queryStr, host) * HostnameWeight; s > best {
			best = s
		}
	}
	return best
}

// scoreText scores queryStr against a single lowercased text.
func scoreText(queryStr, text string) float64 {
	if text == "" {
		return 0.0
	}

	if strings.HasPrefix(text, queryStr) {
		return ScorePrefixMatch
	}

	if index := strings.Index(text, queryStr); index >= 0 {
		// Earlier substring matches get higher score
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(index)/float64(len(text)))
	}

	// All query words present
	if words := strings.Fields(queryStr); len(words) > 1 {
		allMatch := true
		for _, word := range words {
			if !strings.Contains(text, word) {
				allMatch = false
				break
			}
		}
		if allMatch {
			return ScoreFuzzyMatch
		}
	}

	if similarity := calculateSimilarity(queryStr, text); similarity > 0.5 {
		return ScoreFuzzyMatch * similarity
	}

	return 0.0
}

// calculateSimilarity is the ratio of query characters present in text.
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0.0
	}

	matches, total := 0, 0
	for _, c := range s1 {
		total++
		if strings.ContainsRune(s2, c) {
			matches++
		}
	}

	return float64(matches) / float64(total)
}

// RankEntries returns matching entries by descending score. Ties keep
// collection order, so the newer entry wins.
func RankEntries(queryStr string, entries []Entry) []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		score := ScoreEntry(queryStr, e)
		if score == 0.0 {
			continue
		}
		candidates = append(candidates, Candidate{Entry: e, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates
}

// BestEntry returns the highest-ranked entry for the query.
func BestEntry(queryStr string, entries []Entry) (Entry, bool) {
	candidates := RankEntries(queryStr, entries)
	if len(candidates) == 0 {
		return Entry{}, false
	}
	return candidates[0].Entry, true
}
