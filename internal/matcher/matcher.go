// Package matcher scores inbound message text against quick-reply shortcuts.
//
// Every eligible reply is tried against five strategies in priority order
// (exact, exact word, contains, keyword overlap, fuzzy); the first strategy
// that applies gives the reply its score. The best score wins if it clears
// MinScore.
package matcher

import (
	"sync/atomic"
	"unicode/utf8"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

// Default scoring weights and thresholds.
const (
	WeightExact     = 1.0
	WeightExactWord = 0.95
	WeightContains  = 0.85
	WeightKeyword   = 0.75
	WeightFuzzy     = 0.65

	// KeywordOverlapMin is the smallest shared/max keyword ratio that counts.
	KeywordOverlapMin = 0.4
	// FuzzySimilarityMin is the smallest token similarity that counts.
	FuzzySimilarityMin = 0.75
	// MinScore is the confidence floor below which no reply fires.
	MinScore = 0.5

	// Keywords must be longer than this many runes.
	MinKeywordLength = 2
	// Fuzzy matching ignores tokens shorter than this many runes.
	MinFuzzyTokenLength = 3
)

// Weights configures the per-strategy multipliers and thresholds.
type Weights struct {
	Exact     float64
	ExactWord float64
	Contains  float64
	Keyword   float64
	Fuzzy     float64

	KeywordOverlapMin  float64
	FuzzySimilarityMin float64
	MinScore           float64

	MinKeywordLength    int
	MinFuzzyTokenLength int
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		Exact:              WeightExact,
		ExactWord:          WeightExactWord,
		Contains:           WeightContains,
		Keyword:            WeightKeyword,
		Fuzzy:              WeightFuzzy,
		KeywordOverlapMin:  KeywordOverlapMin,
		FuzzySimilarityMin: FuzzySimilarityMin,
		MinScore:           MinScore,

		MinKeywordLength:    MinKeywordLength,
		MinFuzzyTokenLength: MinFuzzyTokenLength,
	}
}

// Matcher is safe for concurrent use. The stopword set can be swapped while
// matching is in progress.
type Matcher struct {
	weights   Weights
	stopwords atomic.Pointer[Stopwords]
}

// New creates a matcher. A nil stopword set selects DefaultStopwords.
func New(weights Weights, stop Stopwords) *Matcher {
	m := &Matcher{weights: weights}
	m.SetStopwords(stop)
	return m
}

// NewDefault creates a matcher with default weights and stopwords.
func NewDefault() *Matcher {
	return New(DefaultWeights(), nil)
}

// SetStopwords replaces the stopword set used for keyword extraction.
func (m *Matcher) SetStopwords(stop Stopwords) {
	if stop == nil {
		stop = DefaultStopwords()
	}
	m.stopwords.Store(&stop)
}

// Stopwords returns the active stopword set.
func (m *Matcher) Stopwords() Stopwords {
	return *m.stopwords.Load()
}

// message holds the per-message data shared across all candidates.
type message struct {
	normalized string
	length     int
	tokens     []string
	keywords   []string
}

// FindBestMatch returns the highest scoring eligible reply, or nil when the
// text is blank, no reply is eligible, or the best score is below the floor.
// Ties go to the reply that appears first in replies.
func (m *Matcher) FindBestMatch(text string, replies []*models.QuickReply) *models.MatchResult {
	normalized := normalize(text)
	if normalized == "" {
		return nil
	}

	stop := m.Stopwords()
	msg := message{
		normalized: normalized,
		length:     utf8.RuneCountInString(normalized),
		tokens:     tokenize(normalized),
		keywords:   keywords(normalized, stop, m.weights.MinKeywordLength),
	}

	var best *models.MatchResult
	for _, reply := range replies {
		if !reply.Eligible() {
			continue
		}

		score, matchType, ok := m.score(msg, reply.Shortcut, stop)
		if !ok {
			continue
		}
		if best == nil || score > best.Score {
			best = &models.MatchResult{Reply: reply, Score: score, MatchType: matchType}
		}
	}

	if best == nil || best.Score < m.weights.MinScore {
		return nil
	}
	return best
}

// score runs the strategy cascade for one shortcut.
func (m *Matcher) score(msg message, rawShortcut string, stop Stopwords) (float64, models.MatchType, bool) {
	shortcut := normalize(rawShortcut)
	if shortcut == "" {
		return 0, "", false
	}
	shortcutTokens := tokenize(shortcut)

	if msg.normalized == shortcut {
		return m.weights.Exact, models.MatchExact, true
	}

	if containsToken(msg.tokens, shortcut) || containsAllTokens(msg.tokens, shortcutTokens) {
		return m.weights.ExactWord, models.MatchExact, true
	}

	if ratio, ok := containment(msg, shortcut); ok {
		return m.weights.Contains * ratio, models.MatchContains, true
	}

	if ratio, ok := keywordOverlap(msg.keywords, keywords(shortcut, stop, m.weights.MinKeywordLength)); ok && ratio >= m.weights.KeywordOverlapMin {
		return m.weights.Keyword * ratio, models.MatchKeyword, true
	}

	if sim := bestTokenSimilarity(msg.tokens, shortcutTokens, m.weights.MinFuzzyTokenLength); sim >= m.weights.FuzzySimilarityMin {
		return m.weights.Fuzzy * sim, models.MatchFuzzy, true
	}

	return 0, "", false
}

func containsAllTokens(haystack, needles []string) bool {
	if len(needles) == 0 {
		return false
	}
	for _, n := range needles {
		if !containsToken(haystack, n) {
			return false
		}
	}
	return true
}

// containment returns shorter/longer when one string contains the other.
func containment(msg message, shortcut string) (float64, bool) {
	if !containsEither(msg.normalized, shortcut) {
		return 0, false
	}
	sl := utf8.RuneCountInString(shortcut)
	return float64(min(sl, msg.length)) / float64(max(sl, msg.length)), true
}

// keywordOverlap returns shared/max(len) when at least one keyword is shared.
func keywordOverlap(messageKeywords, shortcutKeywords []string) (float64, bool) {
	if len(shortcutKeywords) == 0 {
		return 0, false
	}
	shared := 0
	for _, k := range messageKeywords {
		if containsToken(shortcutKeywords, k) {
			shared++
		}
	}
	if shared == 0 {
		return 0, false
	}
	return float64(shared) / float64(max(len(messageKeywords), len(shortcutKeywords))), true
}

func bestTokenSimilarity(messageTokens, shortcutTokens []string, minLen int) float64 {
	best := 0.0
	for _, w := range messageTokens {
		if utf8.RuneCountInString(w) < minLen {
			continue
		}
		for _, sw := range shortcutTokens {
			if utf8.RuneCountInString(sw) < minLen {
				continue
			}
			if sim := Similarity(w, sw); sim > best {
				best = sim
			}
		}
	}
	return best
}
