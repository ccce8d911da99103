package review

import (
	"regexp"
	"strconv"
	"strings"
)

// Comment is one entry of a card's comment stream. Only the first line of
// Text, the vote line "author: expression", is read.
type Comment struct {
	Author string
	Text   string
}

// Result is the outcome of a tally. Votes maps each voter to the value of
// their counted ballot: negative for a veto, positive for approval.
type Result struct {
	Score float64
	Veto  float64
	Votes map[string]float64
}

type ballot struct {
	author     string
	expression string
}

// ComputeScore returns the net review score of a comment stream.
func ComputeScore(comments []Comment) float64 {
	return Tally(comments).Score
}

// Tally counts the votes in comments. The first ballot of each author wins.
// Any veto makes the score negative regardless of approvals.
func Tally(comments []Comment) Result {
	ballots := collect(comments)

	res := Result{Votes: make(map[string]float64, len(ballots))}
	var score float64
	for _, b := range ballots {
		if strings.Contains(b.expression, "-") {
			if value, ok := numberAfter(b.expression, "-"); ok {
				res.Veto += value
				res.Votes[b.author] = -value
			}
		}
		if strings.Contains(b.expression, "+") {
			if value, ok := numberAfter(b.expression, "+"); ok {
				score += min(value, 1)
				res.Votes[b.author] = value
			}
		}
	}

	if res.Veto > 0 {
		res.Score = -res.Veto
	} else {
		res.Score = score
	}
	return res
}

// collect extracts one ballot per author, keeping the first one seen.
func collect(comments []Comment) []ballot {
	seen := make(map[string]bool)
	var ballots []ballot
	for _, c := range comments {
		line, _, _ := strings.Cut(c.Text, "\n")
		author, expression, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		author = strings.TrimSpace(author)
		if seen[author] {
			continue
		}
		seen[author] = true
		ballots = append(ballots, ballot{author: author, expression: expression})
	}
	return ballots
}

var leadingNumber = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// numberAfter parses the number following the first occurrence of sign,
// skipping leading whitespace and ignoring trailing text.
func numberAfter(expression, sign string) (float64, bool) {
	_, rest, _ := strings.Cut(expression, sign)
	m := leadingNumber.FindString(strings.TrimLeft(rest, " \t"))
	if m == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
