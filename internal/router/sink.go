package router

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSink writes each unknown payload to <Dir>/<action>.json, replacing
// the previous payload of the same action.
type FileSink struct {
	Dir string
}

func (s FileSink) Store(action string, raw []byte) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create unknown dir: %w", err)
	}
	path := filepath.Join(s.Dir, fileName(action)+".json")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// fileName keeps letters, digits, '-' and '_' of an action.
func fileName(action string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, action)
	if name == "" {
		return "unnamed"
	}
	return name
}
