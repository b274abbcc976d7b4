package realtime

import "strconv"

// BroadcastGroup holds every admitted connection.
const BroadcastGroup = "presence"

// UserGroup is the address group for all live connections of one user.
func UserGroup(userID uint) string {
	return "user_" + strconv.FormatUint(uint64(userID), 10)
}

// Conn is one admitted live connection.
type Conn interface {
	ID() string
	Emit(event string, payload any)
	Join(group string)
}

// Transport delivers an event to every connection in a group. Delivery is
// fire-and-forget: a group with no members drops the event.
type Transport interface {
	Deliver(group, event string, payload any)
}

// Transports fans one delivery out to several transports.
type Transports []Transport

func (ts Transports) Deliver(group, event string, payload any) {
	for _, t := range ts {
		t.Deliver(group, event, payload)
	}
}
