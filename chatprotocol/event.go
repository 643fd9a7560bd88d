package chatprotocol

import (
	"fmt"
	"regexp"
	"strings"
)

// EventKind represents the type of an inbound chat event.
type EventKind int

const (
	// KindCommand is any server command without a dedicated kind. The raw
	// token is kept in Event.Command.
	KindCommand EventKind = iota
	// KindJoin indicates a user joined a channel.
	KindJoin
	// KindLeave indicates a user left a channel.
	KindLeave
	// KindMessage is a chat message in a channel.
	KindMessage
	// KindMode indicates a moderator status change.
	KindMode
	// KindClearChat indicates a channel or user purge.
	KindClearChat
	// KindHostTarget indicates a channel started or stopped hosting.
	KindHostTarget
	// KindNotice is a service notice.
	KindNotice
	// KindReconnect asks the client to reconnect. Reconnecting is left to
	// the caller.
	KindReconnect
	// KindRoomState reports channel settings.
	KindRoomState
	// KindUserNotice reports subscriptions, raids and similar.
	KindUserNotice
	// KindUserState reports the client user's state in a channel.
	KindUserState
	// KindWhisper is a private message to the client user.
	KindWhisper
	// KindDisconnect is produced locally when the connection fails outside
	// of a deliberate stop. Event.Err carries the cause.
	KindDisconnect
)

var kindNames = map[EventKind]string{
	KindCommand:    "command",
	KindJoin:       "join",
	KindLeave:      "leave",
	KindMessage:    "message",
	KindMode:       "mode",
	KindClearChat:  "clearchat",
	KindHostTarget: "hosttarget",
	KindNotice:     "notice",
	KindReconnect:  "reconnect",
	KindRoomState:  "roomstate",
	KindUserNotice: "usernotice",
	KindUserState:  "userstate",
	KindWhisper:    "whisper",
	KindDisconnect: "disconnect",
}

// String returns the lower-case kind name.
func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// commandKinds maps server command tokens to event kinds.
var commandKinds = map[string]EventKind{
	"JOIN":       KindJoin,
	"PART":       KindLeave,
	"PRIVMSG":    KindMessage,
	"MODE":       KindMode,
	"CLEARCHAT":  KindClearChat,
	"HOSTTARGET": KindHostTarget,
	"NOTICE":     KindNotice,
	"RECONNECT":  KindReconnect,
	"ROOMSTATE":  KindRoomState,
	"USERNOTICE": KindUserNotice,
	"USERSTATE":  KindUserState,
	"WHISPER":    KindWhisper,
}

// KindForCommand returns the event kind for a command token.
func KindForCommand(command string) EventKind {
	if kind, ok := commandKinds[command]; ok {
		return kind
	}
	return KindCommand
}

// Event is a typed inbound record delivered to subscribers and queued for
// Observer.Events. Only the fields the originating command defines are set.
type Event struct {
	Kind EventKind

	// Command is the raw command token, e.g. PRIVMSG or 001.
	Command string

	// Nickname is the sender, or the MODE target for KindMode.
	Nickname string

	// For channel-scoped kinds
	Channel string

	// For KindMessage, KindWhisper, KindNotice, KindHostTarget, KindUserNotice
	Message string

	// For KindMode, "+o" or "-o"
	Mode string

	// Tags from the tag block; nil when the line carried none.
	Tags map[string]string

	// For KindDisconnect
	Err error
}

// NewDisconnectEvent creates a disconnect event carrying the failure cause.
func NewDisconnectEvent(err error) Event {
	return Event{Kind: KindDisconnect, Err: err}
}

// String returns a compact description for logs and the console.
func (e Event) String() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Kind == KindCommand && e.Command != "" {
		b.WriteString(" " + e.Command)
	}
	if e.Channel != "" {
		b.WriteString(" " + ChannelMarker + e.Channel)
	}
	if e.Nickname != "" {
		b.WriteString(" <" + e.Nickname + ">")
	}
	if e.Mode != "" {
		b.WriteString(" " + e.Mode)
	}
	if e.Message != "" {
		b.WriteString(" " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(" " + e.Err.Error())
	}
	return b.String()
}

var (
	// #<channel> :<body>
	channelBodyParams = regexp.MustCompile(`(?s)^#(\w+) :(.*)$`)

	// <recipient> :<body>
	whisperParams = regexp.MustCompile(`(?s)^(\w+)\s+:(.*)$`)

	// #<channel> <+|-o> <nickname>
	modeParams = regexp.MustCompile(`^#(\w+)\s+([+-]o)\s+(\w+)`)
)

// ParseEvent parses one protocol line into an Event.
//
// A *MalformedCommandError is returned together with a usable event when
// the parameters do not have the shape the command defines; the event then
// carries the kind, command, nickname and tags only. Any other error means
// the line is not a server message and no event was produced.
func ParseEvent(line string) (Event, error) {
	msg, err := ParseServerMessage(line)
	if err != nil {
		return Event{}, err
	}
	return EventFromMessage(msg)
}

// EventFromMessage maps a parsed server message to an Event using the
// command table.
func EventFromMessage(msg ServerMessage) (Event, error) {
	event := Event{
		Kind:     KindForCommand(msg.Command),
		Command:  msg.Command,
		Nickname: msg.Nickname,
		Tags:     msg.Tags,
	}

	switch event.Kind {
	case KindJoin, KindLeave, KindUserState, KindRoomState:
		event.Channel = strings.TrimPrefix(msg.Params, ChannelMarker)

	case KindMessage, KindHostTarget, KindNotice, KindUserNotice:
		m := channelBodyParams.FindStringSubmatch(msg.Params)
		if m == nil {
			return event, &MalformedCommandError{Command: msg.Command, Params: msg.Params}
		}
		event.Channel = m[1]
		event.Message = m[2]

	case KindWhisper:
		m := whisperParams.FindStringSubmatch(msg.Params)
		if m == nil {
			return event, &MalformedCommandError{Command: msg.Command, Params: msg.Params}
		}
		event.Message = m[2]

	case KindMode:
		m := modeParams.FindStringSubmatch(msg.Params)
		if m == nil {
			return event, &MalformedCommandError{Command: msg.Command, Params: msg.Params}
		}
		event.Channel = m[1]
		event.Mode = m[2]
		event.Nickname = m[3]
	}

	return event, nil
}
