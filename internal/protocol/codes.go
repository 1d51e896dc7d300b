package protocol

import "fmt"

type Opcode uint64

const (
	SendGameState Opcode = iota
	EndRequest
	SendGameMetadata
	MakeAction
	FinishGame
	SendReturnCode
)

var opcodeString = map[Opcode]string{
	SendGameState:    "SendGameState",
	EndRequest:       "EndRequest",
	SendGameMetadata: "SendGameMetadata",
	MakeAction:       "MakeAction",
	FinishGame:       "FinishGame",
	SendReturnCode:   "SendReturnCode",
}

func (o Opcode) String() string {
	if s, ok := opcodeString[o]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", uint64(o))
}

type ActionKind uint64

const (
	PlayCard ActionKind = iota
	Swap
	Freeze
	Reroll
)

var actionString = map[ActionKind]string{
	PlayCard: "play_card",
	Swap:     "swap",
	Freeze:   "freeze",
	Reroll:   "reroll",
}

func (k ActionKind) String() string {
	if s, ok := actionString[k]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", uint64(k))
}

func (k ActionKind) Valid() bool {
	_, ok := actionString[k]
	return ok
}

// ParseActionKind accepts the names produced by String.
func ParseActionKind(s string) (ActionKind, error) {
	for k, name := range actionString {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

type ReturnCode uint64

const (
	Success ReturnCode = iota
	SymbolMismatch
	SymbolNotInHand
	AbilityUnavailable
	PlayerFrozen
	Error
)

var returnCodeMessage = map[ReturnCode]string{
	Success:            "success",
	SymbolMismatch:     "symbol does not match the card on top",
	SymbolNotInHand:    "symbol is not on your card",
	AbilityUnavailable: "ability has no charges left or is cooling down",
	PlayerFrozen:       "you are frozen",
	Error:              "server error",
}

func (c ReturnCode) String() string {
	if s, ok := returnCodeMessage[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown return code %d", uint64(c))
}

// RejectedError is the advisory form of a non-success return code. It never
// ends the session.
type RejectedError struct {
	Code ReturnCode
}

func (e *RejectedError) Error() string {
	return "action rejected: " + e.Code.String()
}
