package ws

// Client is one subscriber connection. The transport (a websocket write
// loop, or a test) drains Send until it is closed.
type Client struct {
	UserID   string
	send     chan []byte
	channels map[string]bool
	closed   bool
}

func NewClient(userID string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Client{
		UserID:   userID,
		send:     make(chan []byte, queueSize),
		channels: make(map[string]bool),
	}
}

// Send returns the delivery queue. It is closed when the client is detached
// from the hub.
func (c *Client) Send() <-chan []byte {
	return c.send
}
