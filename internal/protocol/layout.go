package protocol

// DefaultNameWidth is the fixed size of a name block on the wire.
const DefaultNameWidth = 32

const (
	defaultMaxPlayers = 16
	maxSymbolsPerCard = 256
)

// Limits are the configured ability maximums. Zero disables a check.
type Limits struct {
	Swaps   int
	Freezes int
	Rerolls int
}

// Layout describes the parts of the frame format that are fixed by
// configuration rather than negotiated.
type Layout struct {
	NameWidth int
	// SnapshotNames selects the later protocol revision where every player
	// entry in a snapshot carries the display name.
	SnapshotNames bool
	// SymbolsPerCard is the negotiated card size; zero accepts any size.
	SymbolsPerCard int
	MaxPlayers     int
	Limits         Limits
}

func DefaultLayout() Layout {
	return Layout{
		NameWidth:     DefaultNameWidth,
		SnapshotNames: true,
		MaxPlayers:    defaultMaxPlayers,
	}
}

func (l Layout) maxPlayers() int {
	if l.MaxPlayers <= 0 {
		return defaultMaxPlayers
	}
	return l.MaxPlayers
}
