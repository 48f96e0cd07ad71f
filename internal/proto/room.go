package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RoomID is a room identifier as it appears on the wire. The default room
// is null; persisted rooms are integers; any other identifier is a string.
// Decoding accepts all three forms.
type RoomID string

// MarshalJSON implements json.Marshaler.
func (r RoomID) MarshalJSON() ([]byte, error) {
	if r == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(r), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(r) {
		return []byte(string(r)), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RoomID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RoomID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("room_id: %w", err)
		}
		if _, err := n.Int64(); err != nil {
			return fmt.Errorf("room_id must be an integer or string: %s", n)
		}
		*r = RoomID(n.String())
		return nil
	}
}
