package trello

import "time"

type List struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Closed  bool   `json:"closed"`
	IDBoard string `json:"idBoard"`
}

type Card struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	IDList string `json:"idList"`
	Closed bool   `json:"closed"`
	URL    string `json:"url"`
}

type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

// CommentAction is a "commentCard" action as returned by the card actions
// endpoint. Trello returns them newest first.
type CommentAction struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Date          time.Time `json:"date"`
	MemberCreator Member    `json:"memberCreator"`
	Data          struct {
		Text string `json:"text"`
	} `json:"data"`
}

// CardUpdate holds the fields of a partial card update. Empty fields are
// left untouched.
type CardUpdate struct {
	Name  string
	Desc  string
	Label string // label colour, e.g. "green"
}
