package protocol

// Kind is the tag identifying a message variant on the wire.
type Kind string

const (
	// KindPost is a chat message submitted by a client for broadcast.
	KindPost Kind = "post"
	// KindError is a hub-generated notice sent back to a misbehaving client.
	// It is never accepted on the inbound path.
	KindError Kind = "error"
)

// Message is a decoded wire message. Exactly one of the payload fields is
// meaningful, selected by Type.
type Message struct {
	Type Kind

	// Body is the chat text (KindPost).
	Body string

	// Notice is the explanatory text of an error notice (KindError).
	Notice string
}

// NewPost builds a broadcastable chat message.
func NewPost(body string) Message {
	return Message{Type: KindPost, Body: body}
}

// NewErrorNotice builds a hub-to-client error notice.
func NewErrorNotice(notice string) Message {
	return Message{Type: KindError, Notice: notice}
}
