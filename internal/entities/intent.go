package entities

// ReplyIntent is a channel-agnostic description of what to send back.
// A delivery adapter turns it into the concrete outbound call.
type ReplyIntent interface {
	// ReplyText is the plain-text rendering, used for the message log and
	// by adapters without richer capabilities.
	ReplyText() string
}

// TextIntent is a plain text reply.
type TextIntent struct {
	Text string
}

func (t TextIntent) ReplyText() string { return t.Text }

// ButtonsIntent is text plus quick-reply buttons (inline keyboard and
// equivalents).
type ButtonsIntent struct {
	Text    string
	Buttons []string
}

func (b ButtonsIntent) ReplyText() string { return b.Text }

// HandoffIntent hands the dialogue to a human operator; Message is the
// optional notice shown to the user.
type HandoffIntent struct {
	Message string
}

func (h HandoffIntent) ReplyText() string { return h.Message }

// OutboundMessage is a reply intent addressed for delivery.
type OutboundMessage struct {
	ChatID  string
	Intent  ReplyIntent
	Channel ChannelContext
}
