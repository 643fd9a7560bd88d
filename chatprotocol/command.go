package chatprotocol

import "strings"

// Verb is the command word of an outbound command.
type Verb string

// Verbs the service accepts from clients.
const (
	VerbJoin    Verb = "JOIN"
	VerbPart    Verb = "PART"
	VerbPrivmsg Verb = "PRIVMSG"
)

// Command is an outbound request queued by Enqueue and written by the
// outbound pump. Use the constructor functions (NewJoinCommand,
// NewMessageCommand, etc.) to create Command instances.
type Command struct {
	Verb    Verb
	Channel string // Without the leading '#'; empty when the verb takes none
	Body    string // Trailing text; empty when the verb takes none
}

// NewCommand creates a command from its parts. A leading '#' on channel is
// dropped. The command is validated by Enqueue, not here.
func NewCommand(verb Verb, channel, body string) Command {
	return Command{
		Verb:    verb,
		Channel: strings.TrimPrefix(channel, ChannelMarker),
		Body:    body,
	}
}

// Validate reports whether the command can be written as a single line.
func (c Command) Validate() error {
	if c.Verb == "" {
		return newInvalidCommandError("verb", "", "verb is required")
	}
	for i := 0; i < len(c.Verb); i++ {
		ch := c.Verb[i]
		if ch < 'A' || ch > 'Z' {
			return newInvalidCommandError("verb", string(c.Verb), "verb must be upper-case letters")
		}
	}
	if strings.ContainsAny(c.Channel, " \r\n") {
		return newInvalidCommandError("channel", c.Channel, "channel must not contain spaces or line breaks")
	}
	if strings.HasPrefix(c.Channel, ChannelMarker) {
		return newInvalidCommandError("channel", c.Channel, "channel must not start with '#'")
	}
	if strings.ContainsAny(c.Body, "\r\n") {
		return newInvalidCommandError("body", c.Body, "body must not contain line breaks")
	}
	return nil
}

// Format returns the command in wire format without the terminator:
// "<VERB> #<channel> :<body>", with the channel or body segment omitted
// when empty.
func (c Command) Format() string {
	var b strings.Builder
	b.WriteString(string(c.Verb))
	if c.Channel != "" {
		b.WriteString(" " + ChannelMarker + c.Channel)
	}
	if c.Body != "" {
		b.WriteString(" :" + c.Body)
	}
	return b.String()
}

// FormatLine returns the command with the line terminator.
func (c Command) FormatLine() string {
	return c.Format() + LineTerminator
}
