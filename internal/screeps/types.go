package screeps

// Object kinds that carry an inventory we count.
const (
	TypeStorage  = "storage"
	TypeTerminal = "terminal"
	TypeFactory  = "factory"
)

// Base is embedded by every API response. ok==1 means the call succeeded logically.
type Base struct {
	OK    int    `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (b Base) Success() bool { return b.OK == 1 }

// Reason returns the server supplied error, or a placeholder when there is none.
func (b Base) Reason() string {
	if b.Error != "" {
		return b.Error
	}
	return "unknown error"
}

type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

type UserResponse struct {
	Base
	User *User `json:"user,omitempty"`
}

type RoomsResponse struct {
	Base
	Shards map[string][]string `json:"shards,omitempty"`
}

// RoomCount returns the number of rooms across every shard.
func (r RoomsResponse) RoomCount() int {
	n := 0
	for _, rooms := range r.Shards {
		n += len(rooms)
	}
	return n
}

// RoomObject is the subset of a room object we read. Store values are null for empty slots.
type RoomObject struct {
	ID    string            `json:"_id"`
	Type  string            `json:"type"`
	Room  string            `json:"room,omitempty"`
	User  string            `json:"user,omitempty"`
	Store map[string]*int64 `json:"store,omitempty"`
}

// HasInventory reports whether the object kind contributes to resource totals.
func (o RoomObject) HasInventory() bool {
	switch o.Type {
	case TypeStorage, TypeTerminal, TypeFactory:
		return true
	default:
		return false
	}
}

type RoomObjectsResponse struct {
	Base
	Objects []RoomObject `json:"objects,omitempty"`
}
