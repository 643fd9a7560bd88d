package chatprotocol

import (
	"fmt"
	"time"
)

// NewJoinCommand creates a command joining channel.
func NewJoinCommand(channel string) Command {
	return NewCommand(VerbJoin, channel, "")
}

// NewPartCommand creates a command leaving channel.
func NewPartCommand(channel string) Command {
	return NewCommand(VerbPart, channel, "")
}

// NewMessageCommand creates a chat message to channel.
func NewMessageCommand(channel, text string) Command {
	return NewCommand(VerbPrivmsg, channel, text)
}

// NewActionCommand creates a "/me" message, shown in the sender's color.
func NewActionCommand(channel, text string) Command {
	return NewMessageCommand(channel, "/me "+text)
}

// NewWhisperCommand creates a private message to user. Whispers are not
// channel scoped, so the channel segment is omitted.
func NewWhisperCommand(user, text string) Command {
	return NewMessageCommand("", fmt.Sprintf("/w %s %s", user, text))
}

// NewModeratorsCommand asks for the moderator list of channel. The list
// arrives as a KindNotice event.
func NewModeratorsCommand(channel string) Command {
	return NewMessageCommand(channel, "/mods")
}

// NewBanCommand bans user from channel.
func NewBanCommand(channel, user string) Command {
	return NewMessageCommand(channel, "/ban "+user)
}

// NewUnbanCommand lifts a ban on user in channel.
func NewUnbanCommand(channel, user string) Command {
	return NewMessageCommand(channel, "/unban "+user)
}

// NewTimeoutCommand bans user from channel for d, rounded down to whole
// seconds.
func NewTimeoutCommand(channel, user string, d time.Duration) Command {
	return NewMessageCommand(channel, fmt.Sprintf("/timeout %s %d", user, int(d.Seconds())))
}

// NewClearCommand clears the chat history of channel.
func NewClearCommand(channel string) Command {
	return NewMessageCommand(channel, "/clear")
}

// NewSlowCommand limits channel to one message per user every d. A zero
// duration turns slow mode off.
func NewSlowCommand(channel string, d time.Duration) Command {
	if d <= 0 {
		return NewMessageCommand(channel, "/slowoff")
	}
	return NewMessageCommand(channel, fmt.Sprintf("/slow %d", int(d.Seconds())))
}

// NewColorCommand changes the client user's name color.
func NewColorCommand(channel, color string) Command {
	return NewMessageCommand(channel, "/color "+color)
}

// SendMessage queues a chat message to channel. With action set the text is
// sent as a "/me" message.
func (o *Observer) SendMessage(channel, text string, action bool) error {
	if action {
		return o.Enqueue(NewActionCommand(channel, text))
	}
	return o.Enqueue(NewMessageCommand(channel, text))
}

// JoinChannel queues a join.
func (o *Observer) JoinChannel(channel string) error {
	return o.Enqueue(NewJoinCommand(channel))
}

// LeaveChannel queues a part.
func (o *Observer) LeaveChannel(channel string) error {
	return o.Enqueue(NewPartCommand(channel))
}

// SendWhisper queues a whisper to user.
func (o *Observer) SendWhisper(user, text string) error {
	return o.Enqueue(NewWhisperCommand(user, text))
}

// ListModerators queues a moderator list request.
func (o *Observer) ListModerators(channel string) error {
	return o.Enqueue(NewModeratorsCommand(channel))
}

// Ban queues a ban of user in channel.
func (o *Observer) Ban(channel, user string) error {
	return o.Enqueue(NewBanCommand(channel, user))
}

// Unban queues lifting a ban of user in channel.
func (o *Observer) Unban(channel, user string) error {
	return o.Enqueue(NewUnbanCommand(channel, user))
}

// Timeout queues a temporary ban of user in channel.
func (o *Observer) Timeout(channel, user string, d time.Duration) error {
	return o.Enqueue(NewTimeoutCommand(channel, user, d))
}

// ClearChat queues clearing the history of channel.
func (o *Observer) ClearChat(channel string) error {
	return o.Enqueue(NewClearCommand(channel))
}
