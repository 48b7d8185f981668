package preprocess

import (
	"regexp"
	"strings"
)

// defaultBotPatterns are substring signatures of bot and CI logins.
// GitHub App bots end with [bot]; the rest are common automation and
// CI identities seen in public archives.
var defaultBotPatterns = []string{
	"[bot]",
	"bot",
	"github-actions",
	"dependabot",
	"actions-user",
	"greenkeeper",
	"renovate",
	"stale",
	"ci",
	"travis",
	"circleci",
	"codecov",
}

// defaultTrivialPhrases are whole-comment acknowledgements with no
// substantive content.
var defaultTrivialPhrases = []string{
	"lgtm",
	"thanks",
	"thank you",
	"approved",
	"approve",
	"ok",
	"nice",
	"👍",
	":+1:",
	":thumbsup:",
	"gtg",
	"sgtm",
	"same",
	"same here",
	"done",
	"fixed",
	"re",
}

// DefaultBotPatterns returns a copy of the compiled-in bot signature list.
func DefaultBotPatterns() []string {
	return append([]string(nil), defaultBotPatterns...)
}

// DefaultTrivialPhrases returns a copy of the compiled-in trivial phrase list.
func DefaultTrivialPhrases() []string {
	return append([]string(nil), defaultTrivialPhrases...)
}

// IsBot reports whether the login matches any bot signature by
// case-insensitive substring. An empty login is treated as a bot.
func IsBot(login string, patterns []string) bool {
	login = strings.ToLower(login)
	if login == "" {
		return true
	}
	for _, pattern := range patterns {
		if strings.Contains(login, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// IsTrivial reports whether text is a low-information acknowledgement:
// a whole-comment match against the phrase set, after lowercasing and
// trimming punctuation, or at most two tokens that are all phrases.
// Empty text is trivial.
func IsTrivial(text string, phrases map[string]struct{}) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return true
	}
	if _, ok := phrases[normalized]; ok {
		return true
	}
	stripped := strings.TrimSpace(nonWordRe.ReplaceAllString(normalized, ""))
	if _, ok := phrases[stripped]; ok {
		return true
	}

	// distinct tokens, so repetition ("ok ok ok") stays trivial
	distinct := make(map[string]struct{})
	for _, token := range Tokenize(normalized) {
		distinct[token] = struct{}{}
	}
	if len(distinct) > 2 {
		return false
	}
	for token := range distinct {
		if _, ok := phrases[token]; !ok {
			return false
		}
	}
	return true
}

// PhraseSet lowercases a phrase list into a lookup set.
func PhraseSet(phrases []string) map[string]struct{} {
	set := make(map[string]struct{}, len(phrases))
	for _, phrase := range phrases {
		set[strings.ToLower(phrase)] = struct{}{}
	}
	return set
}
