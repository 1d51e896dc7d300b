package wire

import "errors"

var (
	// ErrTransport covers refused connections, resets and short reads. The
	// session cannot continue after one.
	ErrTransport = errors.New("transport failure")

	// ErrProtocol means the peer sent something the current position in the
	// protocol does not allow. Stream alignment is lost, so it is fatal too.
	ErrProtocol = errors.New("protocol violation")
)
