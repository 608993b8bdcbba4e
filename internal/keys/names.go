package keys

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// keyAliases maps extra lowercase names to tcell keys. Names from
// tcell.KeyNames are accepted as well.
var keyAliases = map[string]tcell.Key{
	"escape":      tcell.KeyEscape,
	"esc":         tcell.KeyEscape,
	"enter":       tcell.KeyEnter,
	"return":      tcell.KeyEnter,
	"cr":          tcell.KeyEnter,
	"tab":         tcell.KeyTab,
	"backspace":   tcell.KeyBackspace2,
	"bs":          tcell.KeyBackspace2,
	"delete":      tcell.KeyDelete,
	"del":         tcell.KeyDelete,
	"insert":      tcell.KeyInsert,
	"ins":         tcell.KeyInsert,
	"home":        tcell.KeyHome,
	"end":         tcell.KeyEnd,
	"pageup":      tcell.KeyPgUp,
	"pgup":        tcell.KeyPgUp,
	"pagedown":    tcell.KeyPgDn,
	"pgdn":        tcell.KeyPgDn,
	"up":          tcell.KeyUp,
	"down":        tcell.KeyDown,
	"left":        tcell.KeyLeft,
	"right":       tcell.KeyRight,
	"pause":       tcell.KeyPause,
	"print":       tcell.KeyPrint,
	"printscreen": tcell.KeyPrint,
}

var keyNameMap = buildKeyNames()

func buildKeyNames() map[string]tcell.Key {
	m := make(map[string]tcell.Key, len(tcell.KeyNames)+len(keyAliases))
	for k, name := range tcell.KeyNames {
		if k == tcell.KeyRune || strings.ContainsAny(name, "-+") {
			continue
		}
		m[strings.ToLower(name)] = k
	}
	for name, k := range keyAliases {
		m[name] = k
	}
	return m
}

// KeyFromName returns the tcell key for a name, ignoring case.
func KeyFromName(name string) (tcell.Key, bool) {
	k, ok := keyNameMap[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// KeyName returns the display name of k.
func KeyName(k tcell.Key) string {
	if name, ok := tcell.KeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key[%d]", k)
}

var modifierNameMap = map[string]tcell.ModMask{
	"ctrl":    tcell.ModCtrl,
	"control": tcell.ModCtrl,
	"c":       tcell.ModCtrl,
	"alt":     tcell.ModAlt,
	"a":       tcell.ModAlt,
	"shift":   tcell.ModShift,
	"s":       tcell.ModShift,
	"meta":    tcell.ModMeta,
	"m":       tcell.ModMeta,
	"super":   tcell.ModMeta,
	"win":     tcell.ModMeta,
}

// ModifierFromName returns the modifier for a name, ignoring case.
func ModifierFromName(name string) (tcell.ModMask, bool) {
	m, ok := modifierNameMap[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// ModifierPrefix returns the dash prefix form of mods, e.g. "C-A-S-".
func ModifierPrefix(mods tcell.ModMask) string {
	var b strings.Builder
	if mods&tcell.ModCtrl != 0 {
		b.WriteString("C-")
	}
	if mods&tcell.ModAlt != 0 {
		b.WriteString("A-")
	}
	if mods&tcell.ModShift != 0 {
		b.WriteString("S-")
	}
	if mods&tcell.ModMeta != 0 {
		b.WriteString("M-")
	}
	return b.String()
}
