// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package moderation

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MaxTags is the number of topic tags kept on a voice.
const MaxTags = 5

var (
	// strictPolicy removes every element; script and style bodies are dropped with their tags.
	strictPolicy = bluemonday.StrictPolicy()

	residualTag   = regexp.MustCompile(`<[^>]*>`)
	scriptScheme  = regexp.MustCompile(`(?i)(javascript|data|vbscript):`)
	inlineHandler = regexp.MustCompile(`(?i)on\w+=`)
	angleBrackets = strings.NewReplacer("<", "", ">", "")
)

// maxSanitizePasses bounds the strip loop.
const maxSanitizePasses = 32

// SanitizeText strips markup, script URI schemes and inline event handler
// patterns from submitted text. The result is plain text. Removals repeat
// until the text stops changing; text still active after maxSanitizePasses
// yields "".
func SanitizeText(s string) string {
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	for i := 0; i < maxSanitizePasses; i++ {
		next := residualTag.ReplaceAllString(s, "")
		next = scriptScheme.ReplaceAllString(next, "")
		next = inlineHandler.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	if hasActiveContent(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

func hasActiveContent(s string) bool {
	return residualTag.MatchString(s) || scriptScheme.MatchString(s) || inlineHandler.MatchString(s)
}

// SanitizeTags normalises a comma separated tag list. It returns "" when no
// usable tag remains.
func SanitizeTags(raw string) string {
	if raw == "" {
		return ""
	}

	tags := make([]string, 0, MaxTags)
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(angleBrackets.Replace(t))
		if t == "" {
			continue
		}
		tags = append(tags, t)
		if len(tags) == MaxTags {
			break
		}
	}
	return strings.Join(tags, ",")
}
