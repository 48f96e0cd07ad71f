package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSubscribe binds the connection to a room, replacing any previous one.
	CommandSubscribe CommandKind = iota
	// CommandUnsubscribe drops the connection's subscription.
	CommandUnsubscribe
	// CommandTyping updates the connection's typing presence in its room.
	CommandTyping
	// CommandSendMessage submits a chat message to the subscribed room.
	CommandSendMessage
)

// Command represents an action requested by a client over the realtime channel.
type Command struct {
	Kind     CommandKind
	Room     string
	IsTyping bool
	Content  string
}
