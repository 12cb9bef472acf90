package domain

import "time"

// Frame is the JSON payload exchanged on the live channel. It carries no
// store-assigned id or timestamp: the live path is best-effort and the
// durable record lives in the message store.
type Frame struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"message_content"`
}

// ToMessage lifts a frame into a Message stamped with the receipt time.
// The zero ID marks it as live-delivered; reconciliation against the
// durable history happens via Message.SameAs.
func (f Frame) ToMessage(at time.Time) Message {
	return Message{
		Sender:    f.Sender,
		Receiver:  f.Receiver,
		Content:   f.Content,
		CreatedAt: at,
	}
}

// FrameOf projects a message onto the wire shape.
func FrameOf(m Message) Frame {
	return Frame{Sender: m.Sender, Receiver: m.Receiver, Content: m.Content}
}
