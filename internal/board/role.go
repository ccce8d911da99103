package board

import (
	"fmt"
	"sort"
	"strings"
)

// Role is a logical pipeline stage of the board.
type Role int

const (
	InProgress Role = iota
	UnderReview
	Reviewed
	Merged
	Cancelled
	Blocked
)

// Roles lists every role in declaration order.
var Roles = []Role{InProgress, UnderReview, Reviewed, Merged, Cancelled, Blocked}

func (r Role) String() string {
	switch r {
	case InProgress:
		return "in_progress"
	case UnderReview:
		return "under_review"
	case Reviewed:
		return "reviewed"
	case Merged:
		return "merged"
	case Cancelled:
		return "cancelled"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// DefaultName is the list name looked up, or created, when no list id is
// configured for the role.
func (r Role) DefaultName() string {
	switch r {
	case InProgress:
		return "In progress"
	case UnderReview:
		return "Under review"
	case Reviewed:
		return "Reviewed"
	case Merged:
		return "Merged"
	case Cancelled:
		return "Cancelled"
	case Blocked:
		return "Blocked"
	default:
		return ""
	}
}

func ParseRole(s string) (Role, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, r := range Roles {
		if r.String() == key {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown list role %q", ErrMisconfigured, s)
}

// ParseListIDs converts configured role keys to roles. Empty ids are
// dropped so that the role falls back to its default name.
func ParseListIDs(raw map[string]string) (map[Role]string, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ids := make(map[Role]string, len(raw))
	for _, k := range keys {
		r, err := ParseRole(k)
		if err != nil {
			return nil, err
		}
		if id := strings.TrimSpace(raw[k]); id != "" {
			ids[r] = id
		}
	}
	return ids, nil
}
