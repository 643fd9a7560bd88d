// Package chatprotocol implements a client for the Twitch chat service's
// IRC-derived text protocol.
//
// Protocol Format:
//
//	Handshake (Client -> Server):  PASS <credential>\r\n
//	                               NICK <nickname>\r\n
//	                               CAP REQ :<capability>\r\n
//	Commands (Client -> Server):   JOIN #<channel>\r\n
//	                               PART #<channel>\r\n
//	                               PRIVMSG #<channel> :<text>\r\n
//	Keepalive:                     PING :<server>\r\n  ->  PONG :<server>\r\n
//	Server lines:                  [@tag=v;tag=v ]:<prefix> <COMMAND|NNN> <params>\r\n
//
// Example Session:
//
//	CLI: PASS oauth:abcdef
//	CLI: NICK nickname
//	SRV: :tmi.twitch.tv 001 nickname :Welcome, GLHF!
//	CLI: JOIN #channel
//	SRV: :nickname!nickname@nickname.tmi.twitch.tv JOIN #channel
package chatprotocol

import "time"

// Protocol constants.
const (
	// LineTerminator ends every protocol line in both directions.
	LineTerminator = "\r\n"

	// ServerName is the name the chat service uses as a bare prefix.
	ServerName = "tmi.twitch.tv"

	// PingPrefix starts a server keepalive probe. The rest of the line is
	// echoed back after PongPrefix.
	PingPrefix = "PING "

	// PongPrefix starts the keepalive reply.
	PongPrefix = "PONG "

	// PingLine is the keepalive probe the service sends.
	PingLine = PingPrefix + ":" + ServerName

	// PongLine is the reply to PingLine.
	PongLine = PongPrefix + ":" + ServerName

	// AuthFailedLine is the exact line the service sends when the
	// credential is rejected.
	AuthFailedLine = ":" + ServerName + " NOTICE * :Login authentication failed"

	// TagPrefix introduces the optional tag block of a server line.
	TagPrefix = "@"

	// ChannelMarker prefixes channel names on the wire.
	ChannelMarker = "#"
)

// Capabilities requested during the handshake, in order.
const (
	CapabilityMembership = "twitch.tv/membership"
	CapabilityCommands   = "twitch.tv/commands"
	CapabilityTags       = "twitch.tv/tags"
)

// DefaultCapabilities returns the capabilities requested by default.
func DefaultCapabilities() []string {
	return []string{CapabilityMembership, CapabilityCommands, CapabilityTags}
}

// Server endpoints per transport.
const (
	DefaultTCPAddress       = "irc.chat.twitch.tv:6667"
	DefaultTLSAddress       = "irc.chat.twitch.tv:6697"
	DefaultWebSocketAddress = "wss://irc-ws.chat.twitch.tv:443"
)

// Timing and sizing defaults.
const (
	// DefaultPollInterval is the inbound pump's pause between reads.
	DefaultPollInterval = 750 * time.Millisecond

	// DefaultSendInterval is the minimum time between two outbound
	// commands. The service answers command floods with a temporary ban,
	// so queued commands never go out faster than this.
	DefaultSendInterval = 1500 * time.Millisecond

	// DefaultReadTimeout bounds a single inbound read so the pump can
	// notice shutdown.
	DefaultReadTimeout = 250 * time.Millisecond

	// DefaultHandshakeTimeout bounds the synchronous read performed by
	// Start after the credentials are sent.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultDialTimeout bounds establishing the transport.
	DefaultDialTimeout = 10 * time.Second

	// DefaultStopTimeout bounds the pump join on a forced stop.
	DefaultStopTimeout = 5 * time.Second

	// DefaultReadBufferSize is the size of a single inbound read.
	DefaultReadBufferSize = 1024
)
