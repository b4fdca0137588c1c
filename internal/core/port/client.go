package port

import "github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/domain"

// Conn is the service's view of one connected client. The websocket
// adapter implements it; tests substitute in-memory fakes.
//
// Send must not block: implementations queue the message and report
// delivery failures asynchronously via the disconnect path.
type Conn interface {
	Send(msg domain.ServerMessage) error
	Close() error
}
