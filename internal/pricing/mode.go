package pricing

import "fmt"

// Mode selects which engine prices an item. Direct bypasses both engines
// and trusts a price supplied by the caller.
type Mode string

const (
	ModeDirect  Mode = "direct"
	ModeRules   Mode = "rules"
	ModePendant Mode = "pendant"
)

// ParseMode validates a stored calculation mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeDirect, ModeRules, ModePendant:
		return m, nil
	}
	return "", fmt.Errorf("unknown calculation mode %q", s)
}
