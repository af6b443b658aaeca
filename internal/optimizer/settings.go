// Package optimizer holds the optimization settings of a contract build and
// the built-in passes that run over LIR modules.
package optimizer

import (
	"fmt"
	"strings"
)

// Level is an optimization level: '0' to '3' for speed, 's' and 'z' for
// size.
type Level byte

const (
	LevelNone       Level = '0'
	LevelLess       Level = '1'
	LevelDefault    Level = '2'
	LevelAggressive Level = '3'
	LevelSize       Level = 's'
	LevelMinSize    Level = 'z'
)

// ParseLevel accepts "0".."3", "s" and "z", optionally prefixed with "O".
func ParseLevel(s string) (Level, error) {
	t := strings.TrimPrefix(strings.TrimSpace(s), "O")
	if len(t) == 1 {
		l := Level(t[0])
		if l.Valid() {
			return l, nil
		}
	}
	return 0, fmt.Errorf("invalid optimization level %q (want 0, 1, 2, 3, s or z)", s)
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelNone, LevelLess, LevelDefault, LevelAggressive, LevelSize, LevelMinSize:
		return true
	}
	return false
}

// IsSize reports whether l optimizes for size.
func (l Level) IsSize() bool { return l == LevelSize || l == LevelMinSize }

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("O?(%d)", byte(l))
	}
	return "O" + string(rune(l))
}

// MarshalText renders the level without the O prefix.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid optimization level %d", byte(l))
	}
	return []byte{byte(l)}, nil
}

// UnmarshalText parses a level from configuration.
func (l *Level) UnmarshalText(text []byte) error {
	v, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Settings configure one build attempt.
type Settings struct {
	// Level drives the built-in passes and the external opt.
	Level Level `toml:"level"`
	// BackEnd is the code generator level; size levels are not valid here.
	BackEnd Level `toml:"back_end"`
	// FallbackToSize retries a failed build once with Size settings.
	FallbackToSize bool `toml:"fallback_to_size"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{Level: LevelAggressive, BackEnd: LevelAggressive, FallbackToSize: true}
}

// None disables optimization.
func None() Settings {
	return Settings{Level: LevelNone, BackEnd: LevelNone}
}

// Size returns the settings a fallback attempt uses. The fallback flag is
// cleared so a size build never retries.
func Size() Settings {
	return Settings{Level: LevelMinSize, BackEnd: LevelAggressive}
}

// ForLevel returns settings for a command line level such as "3" or "z".
func ForLevel(s string) (Settings, error) {
	l, err := ParseLevel(s)
	if err != nil {
		return Settings{}, err
	}
	out := Default()
	out.Level = l
	if !l.IsSize() {
		out.BackEnd = l
	}
	return out, nil
}

// IsSize reports whether these are size settings.
func (s Settings) IsSize() bool { return s.Level.IsSize() }

// Validate rejects unknown levels.
func (s Settings) Validate() error {
	if !s.Level.Valid() {
		return fmt.Errorf("invalid optimization level %s", s.Level)
	}
	if !s.BackEnd.Valid() || s.BackEnd.IsSize() {
		return fmt.Errorf("invalid back-end optimization level %s", s.BackEnd)
	}
	return nil
}

func (s Settings) String() string {
	out := fmt.Sprintf("M%c B%c", s.Level, s.BackEnd)
	if s.FallbackToSize {
		out += " fallback"
	}
	return out
}

// inlineThreshold is the largest callee, in instructions, inlined at l. Zero
// inlines only functions with a single call site; negative disables inlining.
func (l Level) inlineThreshold() int {
	switch l {
	case LevelDefault:
		return 24
	case LevelAggressive:
		return 96
	case LevelSize:
		return 12
	case LevelMinSize:
		return 0
	}
	return -1
}
