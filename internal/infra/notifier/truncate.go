package notifier

import (
	"strings"
	"unicode"
)

const (
	truncationSuffix = "..."

	// wordBoundaryTolerance is how far back a cut may move to land on whitespace.
	wordBoundaryTolerance = 20

	// excerptLength is the body excerpt used when a record has no summary.
	excerptLength = 200

	// maxEntityLength is the longest escape escapeMrkdwn produces ("&amp;").
	maxEntityLength = 5
)

// TruncateText shortens s to at most limit characters (runes), ending in "...".
//
// The cut moves back to the nearest whitespace when one lies within
// wordBoundaryTolerance characters, and never splits a Slack link (<url|text>):
// a cut inside a link drops the whole link instead. An escape such as "&amp;"
// is never split either.
func TruncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	suffix := []rune(truncationSuffix)
	if limit <= len(suffix) {
		return string(suffix[:max(limit, 0)])
	}

	cut := limit - len(suffix)

	if start, ok := openLinkBefore(runes, cut); ok {
		cut = start
	} else {
		for i := cut; i > 0 && cut-i <= wordBoundaryTolerance; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
	}
	if amp, ok := openEntityBefore(runes, cut); ok {
		cut = amp
	}

	head := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
	return head + truncationSuffix
}

// openLinkBefore reports whether position cut falls inside a "<...>" link
// and returns the index of its opening bracket.
func openLinkBefore(runes []rune, cut int) (int, bool) {
	for i := cut - 1; i >= 0; i-- {
		switch runes[i] {
		case '>':
			return 0, false
		case '<':
			return i, true
		}
	}
	return 0, false
}

// openEntityBefore reports whether position cut falls inside an escape
// like "&lt;" and returns the index of its ampersand.
func openEntityBefore(runes []rune, cut int) (int, bool) {
	for i := cut - 1; i >= 0 && cut-i < maxEntityLength; i-- {
		switch runes[i] {
		case ';':
			return 0, false
		case '&':
			return i, true
		}
	}
	return 0, false
}

// excerpt returns summary when present, otherwise the first 200 characters of
// body with "..." appended when it was cut. The body cut is strict and does not
// look for a word boundary.
func excerpt(summary, body string) string {
	if s := strings.TrimSpace(summary); s != "" {
		return s
	}
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= excerptLength {
		return body
	}
	return string(runes[:excerptLength]) + truncationSuffix
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeMrkdwn escapes the three control characters Slack reserves in mrkdwn.
func escapeMrkdwn(s string) string {
	return mrkdwnEscaper.Replace(s)
}

// link renders a mrkdwn link with an escaped label.
func link(url, label string) string {
	return "<" + url + "|" + escapeMrkdwn(label) + ">"
}
