// SPDX-License-Identifier: MIT
package spectrum

// Control-plane messages. Each is a tagged variant consumed one at a time, in
// arrival order, by the analyzer's service goroutine. HandleMessage reports
// false for variants it does not recognize so an outer dispatcher can try
// other handlers.

// Message marks control-plane message variants.
type Message interface {
	isMessage()
}

// MsgConfigure replaces the analysis settings. Force rebuilds every derived
// resource even for fields that did not change.
type MsgConfigure struct {
	Settings Settings
	Force    bool
}

// MsgConfigureScaleFactor replaces the amplitude divisor applied to raw
// samples before the transform.
type MsgConfigureScaleFactor struct {
	ScaleFactor float64
}

// MsgConfigureBroadcastOpenClose opens or closes the broadcast listener.
type MsgConfigureBroadcastOpenClose struct {
	Open bool
}

// MsgConfigureBroadcastEndpoint moves the broadcast listener; if the listener
// is currently open it is cycled onto the new endpoint.
type MsgConfigureBroadcastEndpoint struct {
	Address string
	Port    uint16
}

// MsgStartStop gates the streaming entry point.
type MsgStartStop struct {
	Run bool
}

// MsgDeviceContext carries the upstream device tuning used for broadcast
// frame metadata.
type MsgDeviceContext struct {
	CenterFrequency uint64
	SampleRate      uint32
}

func (MsgConfigure) isMessage()                   {}
func (MsgConfigureScaleFactor) isMessage()        {}
func (MsgConfigureBroadcastOpenClose) isMessage() {}
func (MsgConfigureBroadcastEndpoint) isMessage()  {}
func (MsgStartStop) isMessage()                   {}
func (MsgDeviceContext) isMessage()               {}

// MessageQueue is an ordered, single-consumer control channel. Push blocks
// when the queue is full; the control path is latency-insensitive.
type MessageQueue struct {
	ch chan Message
}

// NewMessageQueue returns a queue with the given buffer depth.
func NewMessageQueue(depth int) *MessageQueue {
	if depth < 1 {
		depth = 1
	}
	return &MessageQueue{ch: make(chan Message, depth)}
}

// Push enqueues a message for the consumer.
func (q *MessageQueue) Push(msg Message) {
	q.ch <- msg
}
