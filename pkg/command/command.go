// Package command defines the motion commands understood by the robot.
package command

import (
	"errors"
	"fmt"
	"strings"
)

// Command is a motion instruction published to the robot as plain text.
type Command string

// The complete command set. Nothing else is ever published.
const (
	Forward     Command = "Forward"
	Backward    Command = "Backward"
	Left        Command = "Left"
	Right       Command = "Right"
	Stop        Command = "Stop"
	RotateLeft  Command = "RotateLeft"
	RotateRight Command = "RotateRight"
)

// ErrUnknownCommand is returned by Parse for payloads outside the command set.
var ErrUnknownCommand = errors.New("unknown command")

// All returns every command in display order.
func All() []Command {
	return []Command{
		Forward,
		Backward,
		Left,
		Right,
		RotateLeft,
		RotateRight,
		Stop,
	}
}

// Valid reports whether c is one of the seven commands.
func (c Command) Valid() bool {
	for _, known := range All() {
		if c == known {
			return true
		}
	}
	return false
}

func (c Command) String() string {
	return string(c)
}

// Parse converts a payload back into a Command. Surrounding whitespace is ignored.
func Parse(payload string) (Command, error) {
	c := Command(strings.TrimSpace(payload))
	if !c.Valid() {
		return "", fmt.Errorf("parse %q: %w", payload, ErrUnknownCommand)
	}
	return c, nil
}
