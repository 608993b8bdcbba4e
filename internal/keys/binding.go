package keys

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Binding is a key plus modifiers that triggers a filter-set action.
type Binding struct {
	// Key identifies the key; tcell.KeyRune means Rune holds the character.
	Key tcell.Key

	// Rune is the upper-case character for tcell.KeyRune bindings.
	Rune rune

	// Modifiers that must be held.
	Modifiers tcell.ModMask

	// Release is true if the binding fires on key release.
	Release bool
}

// IsZero reports whether b is unset.
func (b Binding) IsZero() bool {
	return b == Binding{}
}

// String returns the canonical dash form, e.g. "C-A-S-K" or "[C-F12".
func (b Binding) String() string {
	if b.IsZero() {
		return ""
	}
	var sb strings.Builder
	if b.Release {
		sb.WriteByte('[')
	}
	sb.WriteString(ModifierPrefix(b.Modifiers))
	if b.Key == tcell.KeyRune {
		sb.WriteRune(b.Rune)
	} else {
		sb.WriteString(KeyName(b.Key))
	}
	return sb.String()
}

// Event returns the key event b describes.
func (b Binding) Event() *tcell.EventKey {
	return tcell.NewEventKey(b.Key, b.Rune, b.Modifiers)
}

// Matches reports whether ev triggers b. Control-letter keys reported by
// the terminal also match the equivalent C- rune binding.
func (b Binding) Matches(ev *tcell.EventKey, press bool) bool {
	if b.IsZero() || ev == nil || b.Release == press || b.Modifiers != ev.Modifiers() {
		return false
	}
	if b.matchKey(ev.Key(), ev.Rune()) {
		return true
	}
	k := ev.Key()
	if ev.Modifiers()&tcell.ModCtrl != 0 && k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return b.matchKey(tcell.KeyRune, 'A'+rune(k-tcell.KeyCtrlA))
	}
	return false
}

func (b Binding) matchKey(k tcell.Key, r rune) bool {
	if b.Key != k {
		return false
	}
	return k != tcell.KeyRune || b.Rune == unicode.ToUpper(r)
}

// Parse parses a key specification string into a Binding.
func Parse(spec string) (Binding, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Binding{}, ErrEmptySpec
	}

	var release bool
	if strings.HasPrefix(spec, "[") {
		release = true
		spec = spec[1:]
	}

	var (
		b   Binding
		err error
	)
	switch {
	case strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") && len(spec) > 2:
		b, err = parseParts(strings.Split(spec[1:len(spec)-1], "-"))
	case strings.Contains(spec, "+") && len(spec) > 1:
		b, err = parseParts(strings.Split(spec, "+"))
	case strings.Contains(spec, "-") && len(spec) > 1:
		b, err = parseParts(strings.Split(spec, "-"))
	default:
		b, err = parseKey(spec, tcell.ModNone)
	}
	if err != nil {
		return Binding{}, err
	}
	b.Release = release
	return b, nil
}

// MustParse parses a key specification and panics on error.
// Use only for known-valid specs in initialization code.
func MustParse(spec string) Binding {
	b, err := Parse(spec)
	if err != nil {
		panic("invalid key specification: " + spec + ": " + err.Error())
	}
	return b
}

// parseParts treats all but the last part as modifiers.
func parseParts(parts []string) (Binding, error) {
	var mods tcell.ModMask
	for _, p := range parts[:len(parts)-1] {
		mod, ok := ModifierFromName(p)
		if !ok {
			return Binding{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods |= mod
	}
	return parseKey(parts[len(parts)-1], mods)
}

// parseKey parses a key part with already-known modifiers
func parseKey(keyPart string, mods tcell.ModMask) (Binding, error) {
	keyPart = strings.TrimSpace(keyPart)
	if keyPart == "" {
		return Binding{}, ErrInvalidSpec
	}

	runes := []rune(keyPart)
	if len(runes) == 1 && unicode.IsPrint(runes[0]) && !unicode.IsSpace(runes[0]) {
		return Binding{Key: tcell.KeyRune, Rune: unicode.ToUpper(runes[0]), Modifiers: mods}, nil
	}

	if k, ok := KeyFromName(keyPart); ok {
		if b := (Binding{Key: k, Modifiers: mods}); !b.IsZero() {
			return b, nil
		}
	}

	return Binding{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, keyPart)
}
