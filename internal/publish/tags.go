package publish

import (
	"strings"
	"unicode"
)

// MaxTags is the most tags Qiita accepts on one item.
const MaxTags = 5

// FallbackTag is used when nothing better can be derived.
const FallbackTag = "AI"

var topicKeywords = map[string][]string{
	"Go":         {"golang", "goroutine", "go言語", "gin", "gorm"},
	"Python":     {"python", "django", "fastapi", "pandas"},
	"TypeScript": {"typescript", "tsx", "nestjs", "next.js", "nextjs"},
	"JavaScript": {"javascript", "node.js", "nodejs", "react"},
	"Docker":     {"docker", "dockerfile", "container", "コンテナ"},
	"SQL":        {"postgres", "postgresql", "mysql", "sqlite", "sql"},
	"OpenAI":     {"openai", "chatgpt", "gpt-4", "gpt-4o", "gpt-3.5"},
}

// topicOrder keeps suggestions deterministic.
var topicOrder = []string{"Go", "Python", "TypeScript", "JavaScript", "Docker", "SQL", "OpenAI"}

// NormalizeTags trims, dedupes and caps caller-supplied tags. Tags with
// characters other than letters, digits and "-_.+" are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" || !validTag(tag) {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, tag)
		if len(result) == MaxTags {
			break
		}
	}
	return result
}

// SuggestTags derives tags from hashtags and well-known topic keywords in
// content. Fenced code blocks are ignored. It always returns at least one tag.
func SuggestTags(content string) []string {
	prose := stripCodeBlocks(content)
	var candidates []string

	for _, word := range strings.Fields(prose) {
		if !strings.HasPrefix(word, "#") {
			continue
		}
		// Markdown headings ("#", "##") trim to nothing.
		tag := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if tag != "" {
			candidates = append(candidates, tag)
		}
	}

	lower := strings.ToLower(prose)
	for _, topic := range topicOrder {
		for _, keyword := range topicKeywords[topic] {
			if containsWord(lower, keyword) {
				candidates = append(candidates, topic)
				break
			}
		}
	}

	tags := NormalizeTags(candidates)
	if len(tags) == 0 {
		return []string{FallbackTag}
	}
	return tags
}

func validTag(tag string) bool {
	for _, r := range tag {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("-_.+", r) {
			continue
		}
		return false
	}
	return true
}

// stripCodeBlocks drops the lines of ``` and ~~~ fenced blocks.
func stripCodeBlocks(content string) string {
	var (
		b     strings.Builder
		fence string
	)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case fence != "":
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		case strings.HasPrefix(trimmed, "```"):
			fence = "```"
			continue
		case strings.HasPrefix(trimmed, "~~~"):
			fence = "~~~"
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// containsWord reports whether keyword occurs in text without an ASCII
// letter or digit directly before or after it, so "gin" does not match
// "login" and "react" does not match "reaction".
func containsWord(text, keyword string) bool {
	for offset := 0; ; {
		i := strings.Index(text[offset:], keyword)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(keyword)
		if (start == 0 || !isASCIIWordByte(text[start-1])) &&
			(end == len(text) || !isASCIIWordByte(text[end])) {
			return true
		}
		offset = start + 1
	}
}

func isASCIIWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
