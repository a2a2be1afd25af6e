package tags

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Confidence assigned by each parse rule.
const (
	BracketConfidence      = 1.0
	ConventionalConfidence = 1.0
	EmojiConfidence        = 0.95
	MergeConfidence        = 1.0
	WIPConfidence          = 0.9
)

var (
	bracketRe      = regexp.MustCompile(`\[([^\]]+)\]`)
	conventionalRe = regexp.MustCompile(`^([a-zA-Z0-9_-]+)(?:\([^)]*\))?!?:`)
	wipRe          = regexp.MustCompile(`(?i)\bWIP\b`)
)

// ParseTag extracts an explicit category from a commit message.
// It returns an empty tag and zero confidence when nothing matches.
func (r *Registry) ParseTag(message string) (string, float64) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return "", 0
	}

	// Merge commits win over any tag quoted in the merged branch name.
	if strings.HasPrefix(msg, "Merge ") && r.Has("MERGE") {
		return "MERGE", MergeConfidence
	}

	if m := bracketRe.FindStringSubmatch(msg); m != nil {
		if tag, ok := r.Resolve(m[1]); ok {
			return tag, BracketConfidence
		}
	}

	if m := conventionalRe.FindStringSubmatch(msg); m != nil {
		if tag, ok := r.Resolve(m[1]); ok {
			return tag, ConventionalConfidence
		}
	}

	if emoji, ok := leadingEmoji(msg); ok {
		if tag, ok := r.Resolve(emoji); ok {
			return tag, EmojiConfidence
		}
	}

	if wipRe.MatchString(msg) && r.Has("WIP") {
		return "WIP", WIPConfidence
	}

	return "", 0
}

// leadingEmoji returns the first rune of msg when it is a pictograph.
func leadingEmoji(msg string) (string, bool) {
	ch, size := utf8.DecodeRuneInString(msg)
	if ch == utf8.RuneError || size == 0 {
		return "", false
	}
	if !isPictograph(ch) {
		return "", false
	}
	return string(ch), true
}

func isPictograph(ch rune) bool {
	switch {
	case ch >= 0x1F300 && ch <= 0x1FAFF:
		return true
	case ch >= 0x2190 && ch <= 0x27BF: // arrows, technical and misc symbols, dingbats
		return true
	}
	return unicode.Is(unicode.So, ch)
}
