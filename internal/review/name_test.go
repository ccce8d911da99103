package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithScore(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		score float64
		want  string
	}{
		{name: "positive", in: "[test] Test PR", score: 2, want: "[test] Test PR (+2)"},
		{name: "replaces previous score", in: "[test] Test PR (+2)", score: -0.5, want: "[test] Test PR (-0.5)"},
		{name: "zero", in: "[test] Test PR (-1)", score: 0, want: "[test] Test PR (0)"},
		{name: "fraction", in: "[test] Test PR", score: 1.5, want: "[test] Test PR (+1.5)"},
		{name: "parenthesis without space kept", in: "[test] f(x)", score: 1, want: "[test] f(x) (+1)"},
		{name: "parenthesis not at end kept", in: "[test] (wip) thing", score: 1, want: "[test] (wip) thing (+1)"},
		{name: "last suffix stripped", in: "[test] Fix (a) (b)", score: 1, want: "[test] Fix (a) (+1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithScore(tt.in, tt.score))
		})
	}
}

func TestWithScore_Idempotent(t *testing.T) {
	names := []string{"[test] Test PR", "[repo] Fix (part 1)", "plain"}
	scores := []float64{-2, -0.5, 0, 0.5, 1, 2}

	for _, n := range names {
		for _, s1 := range scores {
			for _, s2 := range scores {
				assert.Equal(t, WithScore(n, s2), WithScore(WithScore(n, s1), s2), "name %q, %v then %v", n, s1, s2)
			}
		}
	}
}
