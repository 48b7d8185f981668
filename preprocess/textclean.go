package preprocess

import (
	"regexp"
	"strings"
)

var (
	// markdown fenced code blocks, with or without a language tag
	codeBlockRe = regexp.MustCompile("(?s)```\\w*\\n.*?```")

	// markdown images ![alt](url) and github-style [image](url) links
	imageRe     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	imageLinkRe = regexp.MustCompile(`(?i)\[image\]\([^)]*\)`)

	wordRe = regexp.MustCompile(`\w+`)
)

// StripCodeBlocks removes markdown fenced code blocks.
func StripCodeBlocks(text string) string {
	return codeBlockRe.ReplaceAllString(text, " ")
}

// StripImages removes markdown image references.
func StripImages(text string) string {
	text = imageRe.ReplaceAllString(text, " ")
	return imageLinkRe.ReplaceAllString(text, " ")
}

// StripDiffLines removes lines that look like diff snippets, i.e. lines
// whose first non-space character is a + or - marker.
func StripDiffLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "+") || strings.HasPrefix(trimmed, "-") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Denoise applies all stripping passes in order: code blocks first so
// diff-looking lines inside fences are gone before line filtering runs.
func Denoise(text string) string {
	text = StripCodeBlocks(text)
	text = StripImages(text)
	return StripDiffLines(text)
}

// Normalize lowercases and collapses runs of whitespace to single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Tokenize splits text on word boundaries into an ordered token sequence.
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}
