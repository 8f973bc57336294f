// Copyright 2026 EDW Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package enhancer applies deterministic, rule-based rewrites to a user's
// question before it is sent to the SQL generation service.
package enhancer

import (
	"strings"
	"time"
)

// abbreviations is the closed set of shorthand tokens expanded during
// enhancement. Matching is whole-token only.
var abbreviations = map[string]string{
	"rev": "revenue",
	"qty": "quantity",
	"avg": "average",
}

// temporalKeywords trigger the date-context clause. If none of these appear
// in the transformed text, the reference date is not mentioned at all.
var temporalKeywords = []string{
	"date", "time", "today", "yesterday", "week",
	"month", "year", "ago", "recent", "latest", "last",
}

// Enhance normalizes a raw question for SQL generation: it trims surrounding
// whitespace, lowercases, collapses internal whitespace, expands the
// abbreviation table, and appends a date-context clause when the question
// refers to time. Same question and reference date always produce
// byte-identical output.
func Enhance(question string, referenceDate time.Time) string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(question)))
	for i, token := range tokens {
		if expansion, ok := abbreviations[token]; ok {
			tokens[i] = expansion
		}
	}
	expanded := strings.Join(tokens, " ")
	if expanded == "" {
		return ""
	}

	if containsTemporalKeyword(expanded) {
		return expanded + ". Assume current date is " + referenceDate.Format(time.DateOnly) + "."
	}
	return expanded
}

func containsTemporalKeyword(text string) bool {
	for _, keyword := range temporalKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
