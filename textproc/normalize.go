// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package textproc

import (
	"regexp"
	"strings"
)

var (
	pincodeRe  = regexp.MustCompile(`\b\d{6}\b`)
	phoneRe    = regexp.MustCompile(`\b\d{10}\b`)
	emailRe    = regexp.MustCompile(`\S+@\S+`)
	relationRe = regexp.MustCompile(`(?i)\b[sdw]/o\s+\w+\s+\w+`)
	honorRe    = regexp.MustCompile(`(?i)\b(mr|mrs|ms|dr|shri|smt)\.?\s+`)
)

// Normalize lowercases text, replaces every character outside [a-z0-9] with a
// space, collapses runs of whitespace and trims the result.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// RemovePersonalInfo strips phone numbers, email addresses, relation markers
// ("S/O Ram Kumar") and honorifics from raw address text.
func RemovePersonalInfo(text string) string {
	text = phoneRe.ReplaceAllString(text, "")
	text = emailRe.ReplaceAllString(text, "")
	text = relationRe.ReplaceAllString(text, "")
	text = honorRe.ReplaceAllString(text, "")
	return text
}

// ExpandAbbreviations replaces tokens that exactly match a known abbreviation.
// Input is expected to be normalized.
func ExpandAbbreviations(text string) string {
	words := strings.Fields(text)
	for i, word := range words {
		if full, ok := abbreviations[strings.ToLower(word)]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

// Clean prepares raw address text for embedding: personal data is removed, the
// text is normalized, abbreviations are expanded and the result normalized again.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = RemovePersonalInfo(text)
	text = Normalize(text)
	text = ExpandAbbreviations(text)
	return Normalize(text)
}

// ExtractPincode returns the first standalone 6-digit token, or "" if none.
func ExtractPincode(text string) string {
	return pincodeRe.FindString(text)
}

// Tokens returns the whitespace separated tokens of the normalized text.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}
