package retrieval

import "strings"

// keywordRule maps a trigger substring in the query to the literal tokens
// worth searching for verbatim. The rules are associative, not linguistic:
// asking about a MySQL port makes "3306" a high-precision search term even
// though it never appears in the question.
type keywordRule struct {
	triggers []string
	tokens   []string
}

var keywordRules = []keywordRule{
	{
		triggers: []string{"mysql"},
		tokens:   []string{"mysql", "3306"},
	},
	{
		triggers: []string{"端口", "port"},
		tokens:   []string{"端口", "port", "3306", "默认端口"},
	},
	{
		triggers: []string{"默认", "default"},
		tokens:   []string{"默认", "default"},
	},
	{
		triggers: []string{"postgres", "postgresql"},
		tokens:   []string{"postgres", "5432"},
	},
	{
		triggers: []string{"redis"},
		tokens:   []string{"redis", "6379"},
	},
}

// ExtractKeywords derives literal search tokens from a query using the fixed
// associative rules above. The returned slice is deduplicated and preserves
// rule order; it is empty for queries that trigger no rule.
func ExtractKeywords(query string) []string {
	lower := strings.ToLower(query)

	var tokens []string
	seen := make(map[string]struct{})

	for _, rule := range keywordRules {
		triggered := false
		for _, t := range rule.triggers {
			if strings.Contains(lower, t) {
				triggered = true
				break
			}
		}
		if !triggered {
			continue
		}
		for _, tok := range rule.tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}

	return tokens
}
