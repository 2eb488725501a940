package generation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	fenceRE      = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)```")
	blankLinesRE = regexp.MustCompile(`\n[ \t]*\n`)
	bulletRE     = regexp.MustCompile(`^(?:[-*•]\s+|\d+[.)]\s+)`)
)

// ParseResponse extracts and validates a Payload from raw provider text.
//
// The JSON object may sit inside a fenced code block or be surrounded by
// prose. title must be a non-empty string. outline must be an array of
// strings; a single string is repaired by splitting it on blank lines.
// A missing or empty outline is accepted and left for the caller to fill.
// Anything else yields ErrMalformedResponse.
func ParseResponse(raw string) (Payload, error) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return Payload{}, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}
	res := gjson.Parse(obj)

	title := res.Get("title")
	if title.Type != gjson.String || strings.TrimSpace(title.Str) == "" {
		return Payload{}, fmt.Errorf("%w: title missing or not a string", ErrMalformedResponse)
	}

	outline, err := parseOutline(res.Get("outline"))
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Title:               strings.TrimSpace(title.Str),
		Outline:             outline,
		MidMention:          field(res, "midMention", "mid_mention"),
		EndMention:          field(res, "endMention", "end_mention"),
		ThumbnailIdea:       field(res, "thumbnailIdea", "thumbnail_idea"),
		InteractionQuestion: field(res, "interactionQuestion", "interaction_question"),
		Category:            field(res, "category"),
		Subcategory:         field(res, "subcategory"),
		LengthBucket:        field(res, "lengthBucket", "length_bucket"),
	}, nil
}

func parseOutline(v gjson.Result) ([]string, error) {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return nil, nil
	case v.IsArray():
		var out []string
		var bad bool
		v.ForEach(func(_, item gjson.Result) bool {
			if item.Type != gjson.String {
				bad = true
				return false
			}
			if s := strings.TrimSpace(item.Str); s != "" {
				out = append(out, s)
			}
			return true
		})
		if bad {
			return nil, fmt.Errorf("%w: outline items must be strings", ErrMalformedResponse)
		}
		return out, nil
	case v.Type == gjson.String:
		return SplitOutline(v.Str), nil
	default:
		return nil, fmt.Errorf("%w: outline has type %s", ErrMalformedResponse, v.Type)
	}
}

// SplitOutline repairs an outline delivered as one string by splitting it on
// blank lines. Leading list markers ("-", "*", "1.") are removed.
func SplitOutline(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, part := range blankLinesRE.Split(s, -1) {
		part = strings.TrimSpace(bulletRE.ReplaceAllString(strings.TrimSpace(part), ""))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// field returns the first string value found under keys.
func field(res gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := res.Get(k); v.Type == gjson.String {
			return strings.TrimSpace(v.Str)
		}
	}
	return ""
}

// ExtractJSON finds the first well-formed JSON object in s. Fenced code
// blocks are tried first, then every balanced {...} span in the raw text.
func ExtractJSON(s string) (string, bool) {
	for _, m := range fenceRE.FindAllStringSubmatch(s, -1) {
		if obj, ok := firstObject(m[1]); ok {
			return obj, true
		}
	}
	return firstObject(s)
}

func firstObject(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := matchBrace(s, i)
		if end < 0 {
			continue
		}
		cand := s[i : end+1]
		if gjson.Valid(cand) && gjson.Parse(cand).IsObject() {
			return cand, true
		}
	}
	return "", false
}

// matchBrace returns the index of the '}' closing the '{' at start, skipping
// braces inside JSON strings, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
