package command

import "strings"

// Key codes with a fixed meaning outside the command table.
const (
	KeyEscape = 27
	KeyNone   = -1
)

// keyTable maps manual control keys to commands.
var keyTable = map[string]Command{
	"w": Forward,
	"s": Backward,
	"a": Left,
	"d": Right,
	"q": RotateLeft,
	"e": RotateRight,
	" ": Stop,
}

// FromKey maps a single pressed key to a command. Letters are case-insensitive.
// Any other input yields false.
func FromKey(key string) (Command, bool) {
	c, ok := keyTable[strings.ToLower(key)]
	return c, ok
}

// FromKeyCode maps a raw key code, as returned by a window key poll, to a command.
func FromKeyCode(code int) (Command, bool) {
	if code < 0 || code > 0x7f {
		return "", false
	}
	return FromKey(string(rune(code)))
}

// helpRows lays out the manual controls, one help line per row.
var helpRows = [][]Command{
	{Forward, Backward, Left, Right},
	{RotateLeft, RotateRight, Stop},
}

var helpLabels = map[Command]string{
	RotateLeft:  "Rotate Left",
	RotateRight: "Rotate Right",
}

// KeyFor returns the key bound to c as shown in help text, or "" if c is unbound.
func KeyFor(c Command) string {
	for k, v := range keyTable {
		if v == c {
			if k == " " {
				return "SPACE"
			}
			return strings.ToUpper(k)
		}
	}
	return ""
}

// Help returns the manual control help lines shown in every UI.
func Help() []string {
	lines := []string{"Manual Controls:"}
	for _, row := range helpRows {
		items := make([]string, 0, len(row))
		for _, c := range row {
			label, ok := helpLabels[c]
			if !ok {
				label = c.String()
			}
			items = append(items, KeyFor(c)+"-"+label)
		}
		lines = append(lines, strings.Join(items, " | "))
	}
	return append(lines, "ESC to quit")
}
