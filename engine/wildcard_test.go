package engine

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Match(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"/*", "/", true},
		{"/*", "/anything/at/all", true},
		{"/blog/*", "/blog/post-1", true},
		{"/blog/*", "/blog/", true},
		{"/blog/*", "/blog", false},
		{"/*.css", "/styles/main.css", true},
		{"/*.css", "/styles/main.js", false},
		{"*", "", true},
		{"", "", true},
		{"", "a", false},
		{"a*b*c", "aXXbYYc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "acb", false},
		{"***", "anything", true},
		{"/exact", "/exact", true},
		{"/exact", "/exact/", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.pattern, tt.input), "Match(%q, %q)", tt.pattern, tt.input)
	}
}

// matchReference is a dynamic-programming wildcard matcher used as an oracle.
func matchReference(pattern, input string) bool {
	dp := make([][]bool, len(pattern)+1)
	for i := range dp {
		dp[i] = make([]bool, len(input)+1)
	}
	dp[0][0] = true
	for p := 1; p <= len(pattern); p++ {
		if pattern[p-1] == '*' {
			dp[p][0] = dp[p-1][0]
		}
	}
	for p := 1; p <= len(pattern); p++ {
		for i := 1; i <= len(input); i++ {
			if pattern[p-1] == '*' {
				dp[p][i] = dp[p-1][i] || dp[p][i-1]
			} else if pattern[p-1] == input[i-1] {
				dp[p][i] = dp[p-1][i-1]
			}
		}
	}
	return dp[len(pattern)][len(input)]
}

func Test_Match_AgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := "ab*"

	randomString := func(chars string, max int) string {
		var b strings.Builder
		for n := rng.Intn(max); n > 0; n-- {
			b.WriteByte(chars[rng.Intn(len(chars))])
		}
		return b.String()
	}

	for i := 0; i < 5000; i++ {
		pattern := randomString(alphabet, 12)
		input := randomString("ab", 16)
		assert.Equal(t, matchReference(pattern, input), Match(pattern, input),
			"Match(%q, %q)", pattern, input)
	}
}
