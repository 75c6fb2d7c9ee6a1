// Package quality scores items on a [0,100] scale from independent additive
// adjustments. Scoring functions are pure: the same input and config always
// give the same score.
package quality

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/lexandro/contentsieve/item"
)

const (
	MaxScore = 100.0
	MinScore = 0.0
)

// FileConfig holds the file-content heuristics.
type FileConfig struct {
	MinSizeBytes        int64         `yaml:"minSizeBytes" json:"minSizeBytes" validate:"gte=0"`
	TooSmallPenalty     float64       `yaml:"tooSmallPenalty" json:"tooSmallPenalty" validate:"gte=0"`
	MaxSizeBytes        int64         `yaml:"maxSizeBytes" json:"maxSizeBytes" validate:"gte=0"`
	TooLargePenalty     float64       `yaml:"tooLargePenalty" json:"tooLargePenalty" validate:"gte=0"`
	StaleAfter          time.Duration `yaml:"staleAfter" json:"staleAfter" validate:"gte=0"`
	StalePenalty        float64       `yaml:"stalePenalty" json:"stalePenalty" validate:"gte=0"`
	PreferredCategories []string      `yaml:"preferredCategories" json:"preferredCategories"`
	CategoryBonus       float64       `yaml:"categoryBonus" json:"categoryBonus" validate:"gte=0"`
	CleanNamePattern    string        `yaml:"cleanNamePattern" json:"cleanNamePattern"`
	NamingPenalty       float64       `yaml:"namingPenalty" json:"namingPenalty" validate:"gte=0"`
}

// TextConfig holds the generated-text heuristics.
type TextConfig struct {
	MinLength           int     `yaml:"minLength" json:"minLength" validate:"gte=0"`
	TooShortPenalty     float64 `yaml:"tooShortPenalty" json:"tooShortPenalty" validate:"gte=0"`
	MaxLength           int     `yaml:"maxLength" json:"maxLength" validate:"gte=0"`
	TooLongPenalty      float64 `yaml:"tooLongPenalty" json:"tooLongPenalty" validate:"gte=0"`
	MinSentences        int     `yaml:"minSentences" json:"minSentences" validate:"gte=0"`
	FewSentencesPenalty float64 `yaml:"fewSentencesPenalty" json:"fewSentencesPenalty" validate:"gte=0"`
	MinUniqueRatio      float64 `yaml:"minUniqueRatio" json:"minUniqueRatio" validate:"gte=0,lte=1"`
	RepetitionPenalty   float64 `yaml:"repetitionPenalty" json:"repetitionPenalty" validate:"gte=0"`
	MaxSymbolRatio      float64 `yaml:"maxSymbolRatio" json:"maxSymbolRatio" validate:"gte=0,lte=1"`
	SymbolPenalty       float64 `yaml:"symbolPenalty" json:"symbolPenalty" validate:"gte=0"`
}

// Config is the full scorer configuration.
type Config struct {
	File             FileConfig `yaml:"file" json:"file"`
	Text             TextConfig `yaml:"text" json:"text"`
	DuplicatePenalty float64    `yaml:"duplicatePenalty" json:"duplicatePenalty" validate:"gte=0"`
}

// DefaultConfig returns the built-in heuristics.
func DefaultConfig() Config {
	return Config{
		File: FileConfig{
			MinSizeBytes:        10,
			TooSmallPenalty:     20,
			MaxSizeBytes:        100 << 20,
			TooLargePenalty:     10,
			StaleAfter:          365 * 24 * time.Hour,
			StalePenalty:        10,
			PreferredCategories: []string{"code", "docs"},
			CategoryBonus:       5,
			CleanNamePattern:    `^[A-Za-z0-9][A-Za-z0-9._-]*$`,
			NamingPenalty:       5,
		},
		Text: TextConfig{
			MinLength:           50,
			TooShortPenalty:     40,
			MaxLength:           5000,
			TooLongPenalty:      20,
			MinSentences:        2,
			FewSentencesPenalty: 15,
			MinUniqueRatio:      0.5,
			RepetitionPenalty:   20,
			MaxSymbolRatio:      0.1,
			SymbolPenalty:       15,
		},
		DuplicatePenalty: 50,
	}
}

// Scorer applies a Config. It holds no mutable state.
type Scorer struct {
	config    Config
	cleanName *regexp.Regexp
	preferred map[string]bool
}

// NewScorer compiles the naming pattern once.
func NewScorer(config Config) (*Scorer, error) {
	s := &Scorer{config: config, preferred: make(map[string]bool)}
	if config.File.CleanNamePattern != "" {
		re, err := regexp.Compile(config.File.CleanNamePattern)
		if err != nil {
			return nil, fmt.Errorf("compiling clean name pattern: %w", err)
		}
		s.cleanName = re
	}
	for _, c := range config.File.PreferredCategories {
		s.preferred[c] = true
	}
	return s, nil
}

// ScoreFile scores a file item as of now.
func (s *Scorer) ScoreFile(it *item.Item, now time.Time) float64 {
	cfg := s.config.File
	score := MaxScore

	if it.SizeBytes < cfg.MinSizeBytes {
		score -= cfg.TooSmallPenalty
	}
	if cfg.MaxSizeBytes > 0 && it.SizeBytes > cfg.MaxSizeBytes {
		score -= cfg.TooLargePenalty
	}
	if cfg.StaleAfter > 0 && !it.ModifiedAt.IsZero() && now.Sub(it.ModifiedAt) > cfg.StaleAfter {
		score -= cfg.StalePenalty
	}
	if it.IsDuplicate {
		score -= s.config.DuplicatePenalty
	}
	if s.preferred[it.Category] {
		score += cfg.CategoryBonus
	}
	if s.cleanName != nil && !s.cleanName.MatchString(it.Name) {
		score -= cfg.NamingPenalty
	}
	return Clamp(score)
}

// ScoreText scores generated text. duplicate applies the duplicate penalty
// regardless of whether an exact or near-duplicate check flagged it.
func (s *Scorer) ScoreText(text string, duplicate bool) float64 {
	cfg := s.config.Text
	score := MaxScore
	length := len([]rune(text))

	if length < cfg.MinLength {
		score -= cfg.TooShortPenalty
	}
	if cfg.MaxLength > 0 && length > cfg.MaxLength {
		score -= cfg.TooLongPenalty
	}
	if CountSentences(text) < cfg.MinSentences {
		score -= cfg.FewSentencesPenalty
	}
	if UniqueTokenRatio(text) < cfg.MinUniqueRatio {
		score -= cfg.RepetitionPenalty
	}
	if SymbolRatio(text) > cfg.MaxSymbolRatio {
		score -= cfg.SymbolPenalty
	}
	if duplicate {
		score -= s.config.DuplicatePenalty
	}
	return Clamp(score)
}

// ScoreSample scores a sample using its response and duplicate flags. A
// sample whose domain is a preferred category earns the category bonus.
func (s *Scorer) ScoreSample(sample *item.Sample) float64 {
	score := s.ScoreText(sample.Response, sample.IsDuplicate)
	if sample.Domain != "" && s.preferred[sample.Domain] {
		score = Clamp(score + s.config.File.CategoryBonus)
	}
	return score
}

// Clamp bounds a score to [0,100].
func Clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// CountSentences counts runs of text terminated by '.', '!' or '?', plus a
// trailing unterminated run.
func CountSentences(text string) int {
	count := 0
	inSentence := false
	for _, r := range text {
		switch {
		case r == '.' || r == '!' || r == '?':
			if inSentence {
				count++
				inSentence = false
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			inSentence = true
		}
	}
	if inSentence {
		count++
	}
	return count
}

// UniqueTokenRatio is distinct lowercase tokens over total tokens. Empty text is 1.
func UniqueTokenRatio(text string) float64 {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return 1
	}
	unique := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		unique[tok] = struct{}{}
	}
	return float64(len(unique)) / float64(len(tokens))
}

// SymbolRatio is the share of non-space runes that are neither letters, digits
// nor common punctuation. Emoji and pictographs count as symbols.
func SymbolRatio(text string) float64 {
	total, symbols := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(".,;:!?'\"()-", r) {
			continue
		}
		symbols++
	}
	if total == 0 {
		return 0
	}
	return float64(symbols) / float64(total)
}
