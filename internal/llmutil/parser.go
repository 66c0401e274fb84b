// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// jsonObjectRegex extracts a JSON object if the response is wrapped in markdown.
	jsonObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	// jsonArrayRegex extracts a JSON array if the response is wrapped in markdown.
	jsonArrayRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")
)

// ExtractJSON pulls the JSON payload out of an LLM response, tolerating the
// usual formatting noise: markdown code fences and conversational text around
// the structure. The returned string is the best candidate for unmarshaling;
// it is not guaranteed to be valid JSON.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	isObject := strings.Contains(response, "{")
	isArray := strings.Contains(response, "[")

	// Markdown wrapping is the most common case.
	if strings.HasPrefix(response, "```") {
		var matches []string
		if isObject {
			matches = jsonObjectRegex.FindStringSubmatch(response)
		}
		if len(matches) <= 1 && isArray {
			matches = jsonArrayRegex.FindStringSubmatch(response)
		}
		if len(matches) > 1 {
			return matches[1]
		}
	}

	// Already bare JSON.
	if strings.HasPrefix(response, "{") || strings.HasPrefix(response, "[") {
		return response
	}

	// Hunt for the structure inside conversational text. Objects win over
	// arrays when both appear.
	if isObject {
		fb := strings.Index(response, "{")
		lb := strings.LastIndex(response, "}")
		if fb != -1 && lb > fb {
			return response[fb : lb+1]
		}
	}
	if isArray {
		fb := strings.Index(response, "[")
		lb := strings.LastIndex(response, "]")
		if fb != -1 && lb > fb {
			return response[fb : lb+1]
		}
	}

	return response
}

// ParseJSONResponse parses an LLM response string into a target Go type using
// generics, after running it through ExtractJSON.
func ParseJSONResponse[T any](response string) (*T, error) {
	payload := ExtractJSON(response)

	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, truncateString(payload, 500))
	}
	return &result, nil
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	// Simple truncation; does not account for rune boundaries but sufficient
	// for error logging.
	return s[:maxLen] + "..."
}
