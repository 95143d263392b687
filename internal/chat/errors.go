package chat

import (
	"errors"
	"fmt"
)

// ErrDecode marks an inbound payload that is not a well-formed message.
var ErrDecode = errors.New("chat: malformed message")

// ProtocolError reports an inbound message whose type is not recognized.
type ProtocolError struct {
	Type string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("bad message: %s", e.Type)
}
