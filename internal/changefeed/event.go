package changefeed

import "encoding/json"

// Row-level change events for the chat tables, published after every
// successful write and fanned out over Redis Pub/Sub. One channel per
// table, so delivery order matches publish order per table; there is no
// ordering guarantee across tables.

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

const (
	TableRooms    = "rooms"
	TableMessages = "messages"
)

type Event struct {
	Table string          `json:"table"`
	Op    Op              `json:"op"`
	Row   json.RawMessage `json:"row"`
}

// Decode unmarshals the event's row into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Row, v)
}

// ChannelFor returns the Pub/Sub channel carrying changes for a table.
func ChannelFor(table string) string {
	return "changefeed:" + table
}

// Filter decides whether a subscriber wants an event. A nil Filter
// accepts everything.
type Filter func(Event) bool

// MessagesInRoom matches message events belonging to one room.
func MessagesInRoom(roomID string) Filter {
	return func(e Event) bool {
		if e.Table != TableMessages {
			return false
		}
		var row struct {
			RoomID string `json:"room_id"`
		}
		if err := e.Decode(&row); err != nil {
			return false
		}
		return row.RoomID == roomID
	}
}
