package protocol

import "dobble-client/internal/state"

// Frame is one protocol message. The set of implementations is closed: one
// type per opcode.
type Frame interface {
	Opcode() Opcode
	isFrame()
}

type GameStateFrame struct {
	State state.GameState
}

type EndRequestFrame struct{}

type GameMetadataFrame struct {
	SymbolsPerCard int
	PlayerID       int
}

type MakeActionFrame struct {
	Action Action
}

type FinishGameFrame struct{}

type ReturnCodeFrame struct {
	Code ReturnCode
}

func (GameStateFrame) Opcode() Opcode    { return SendGameState }
func (EndRequestFrame) Opcode() Opcode   { return EndRequest }
func (GameMetadataFrame) Opcode() Opcode { return SendGameMetadata }
func (MakeActionFrame) Opcode() Opcode   { return MakeAction }
func (FinishGameFrame) Opcode() Opcode   { return FinishGame }
func (ReturnCodeFrame) Opcode() Opcode   { return SendReturnCode }

func (GameStateFrame) isFrame()    {}
func (EndRequestFrame) isFrame()   {}
func (GameMetadataFrame) isFrame() {}
func (MakeActionFrame) isFrame()   {}
func (FinishGameFrame) isFrame()   {}
func (ReturnCodeFrame) isFrame()   {}

// Action is a candidate move. The client only proposes; the server judges.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Target int        `json:"target"`
	Aux    int        `json:"aux"`
}
