// Package keys parses key bindings used by filter-set variables and matches
// them against tcell key events.
//
// A binding names one key plus any modifiers. Several notations are
// accepted and all normalize to the same Binding:
//
//   - Dash notation: "C-A-S-K", "C-F12", "A-Escape"
//   - Plus notation: "Ctrl+Alt+Shift+K", "Alt+F4"
//   - Angle notation: "<C-A-S-k>", "<Esc>"
//   - Bare keys: "K", "F5", "PrintScreen"
//
// Key names are those of tcell.KeyNames plus common aliases such as "Esc"
// and "PageUp". Letter keys are case-insensitive; use the S- modifier for
// shift. A leading "[" marks a binding that fires on key release instead
// of press.
package keys
