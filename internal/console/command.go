package console

import (
	"dobble-client/internal/cards"
	"dobble-client/internal/protocol"
	"fmt"
	"strconv"
	"strings"
)

type CommandKind int

const (
	CmdAction CommandKind = iota
	CmdState
	CmdHelp
	CmdQuit
)

type Command struct {
	Kind   CommandKind
	Action protocol.Action
}

const Help = `commands:
  play <symbol>     play the symbol your card shares with the top card
  swap <player>     swap cards with a player
  freeze <player>   freeze a player
  reroll            draw a new card
  state             show the game
  help              show this text
  quit              leave the game`

// ParseCommand reads one console line. Reroll is returned without a target;
// the dispatcher fills in the local player.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	name, args := fields[0], fields[1:]
	switch name {
	case "state", "s":
		return Command{Kind: CmdState}, noArgs(name, args)
	case "help", "h", "?":
		return Command{Kind: CmdHelp}, noArgs(name, args)
	case "quit", "q", "exit":
		return Command{Kind: CmdQuit}, noArgs(name, args)
	case "reroll", "r":
		if err := noArgs(name, args); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdAction, Action: protocol.Action{Kind: protocol.Reroll}}, nil
	}

	var kind protocol.ActionKind
	switch name {
	case "play", "p":
		kind = protocol.PlayCard
	case "swap":
		kind = protocol.Swap
	case "freeze", "f":
		kind = protocol.Freeze
	default:
		return Command{}, fmt.Errorf("unknown command %q", name)
	}

	if len(args) != 1 {
		return Command{}, fmt.Errorf("%s takes exactly one number", name)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return Command{}, fmt.Errorf("%s: %q is not a valid number", name, args[0])
	}
	return Command{Kind: CmdAction, Action: protocol.Action{Kind: kind, Target: n}}, nil
}

func noArgs(name string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%s takes no arguments", name)
	}
	return nil
}

// Symbol is the played symbol of a PlayCard command.
func (c Command) Symbol() cards.Symbol {
	return cards.Symbol(c.Action.Target)
}
