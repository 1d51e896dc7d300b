package session

type Phase int32

const (
	Connecting Phase = iota
	AwaitingMetadata
	AwaitingUsernameAck
	AwaitingGameMetadata
	AwaitingInitialSnapshot
	Active
	Finished
)

var phaseString = map[Phase]string{
	Connecting:              "connecting",
	AwaitingMetadata:        "awaiting_metadata",
	AwaitingUsernameAck:     "awaiting_username_ack",
	AwaitingGameMetadata:    "awaiting_game_metadata",
	AwaitingInitialSnapshot: "awaiting_initial_snapshot",
	Active:                  "active",
	Finished:                "finished",
}

func (p Phase) String() string {
	if s, ok := phaseString[p]; ok {
		return s
	}
	return "unknown"
}
