package kodi

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Slab sizes match fzf's own defaults.
const (
	slab16Size = 100 * 1024
	slab32Size = 2048
)

var initScoring sync.Once

// bestMatch returns the index of the title that best matches query, or -1
// when nothing matches.
//
// A case-insensitive exact match always wins. Otherwise every title is
// scored with fzf's V2 algorithm and the highest score wins. Ties go to the
// shorter title.
func bestMatch(query string, titles []string) int {
	query = strings.TrimSpace(query)
	if query == "" || len(titles) == 0 {
		return -1
	}

	for i, title := range titles {
		if strings.EqualFold(strings.TrimSpace(title), query) {
			return i
		}
	}

	initScoring.Do(func() { algo.Init("default") })

	pattern := []rune(strings.ToLower(query))
	// Slabs are scratch space and are not safe to share between goroutines.
	slab := util.MakeSlab(slab16Size, slab32Size)

	best, bestScore, bestLen := -1, 0, 0
	for i, title := range titles {
		chars := util.ToChars([]byte(title))
		result, _ := algo.FuzzyMatchV2(false, false, true, &chars, pattern, false, slab)
		if result.Start < 0 || result.Score <= 0 {
			continue
		}

		length := utf8.RuneCountInString(title)
		if best < 0 || result.Score > bestScore || (result.Score == bestScore && length < bestLen) {
			best, bestScore, bestLen = i, result.Score, length
		}
	}
	return best
}
