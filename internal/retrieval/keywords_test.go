package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "mysql trigger",
			query: "MySQL的默认端口是多少",
			want:  []string{"mysql", "3306", "端口", "port", "默认端口", "默认", "default"},
		},
		{
			name:  "port trigger in english",
			query: "which port does the database listen on",
			want:  []string{"端口", "port", "3306", "默认端口"},
		},
		{
			name:  "redis trigger",
			query: "how do I connect to redis",
			want:  []string{"redis", "6379"},
		},
		{
			name:  "no trigger",
			query: "who wrote this novel",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.query))
		})
	}
}

func TestExtractKeywords_Deduplicates(t *testing.T) {
	// "mysql" and "端口" both contribute "3306"; it must appear once.
	tokens := ExtractKeywords("mysql 端口")
	count := 0
	for _, tok := range tokens {
		if tok == "3306" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
