// =============================================================================
// help.go - Console Help
// =============================================================================
//
// Help text for the console's slash-commands. /help prints the overview;
// /help <command> prints the detailed entry for one command.
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"strings"
)

// commandUsage holds the one-line synopsis of each command, keyed by name
// without the slash. Aliases share the entry of their command.
var commandUsage = map[string]string{
	"join":    "/join <channel>",
	"part":    "/part [channel]",
	"leave":   "/part [channel]",
	"w":       "/w <user> <text>",
	"whisper": "/w <user> <text>",
	"me":      "/me <text>",
	"ban":     "/ban <user>",
	"unban":   "/unban <user>",
	"timeout": "/timeout <user> [seconds]",
	"slow":    "/slow [seconds|off]",
	"clear":   "/clear",
	"mods":    "/mods",
	"color":   "/color <name|#RRGGBB>",
	"events":  "/events",
	"help":    "/help [command]",
	"quit":    "/quit",
}

// commandHelp holds the detailed help of each command.
var commandHelp = map[string]string{
	"join": `/join <channel>
  Join a channel and make it the current channel. Plain text and the
  moderation commands act on the current channel. The '#' is optional.`,

	"part": `/part [channel]
  Leave a channel, the current one if none is given. Leaving the current
  channel clears it.`,

	"w": `/w <user> <text>
  Send a private whisper to a user. Whispers do not need a current channel.`,

	"me": `/me <text>
  Send an action message to the current channel, shown in your name color.`,

	"ban": `/ban <user>
  Ban a user from the current channel. Requires moderator rights.`,

	"unban": `/unban <user>
  Lift a ban or timeout in the current channel.`,

	"timeout": `/timeout <user> [seconds]
  Ban a user from the current channel for a while (default: 600 seconds).
  A duration such as 90s or 5m is accepted as well.`,

	"slow": `/slow [seconds|off]
  Limit users to one message per interval. Without an argument, or with
  "off", slow mode is turned off.`,

	"clear": `/clear
  Clear the chat history of the current channel.`,

	"mods": `/mods
  Ask for the moderator list of the current channel. The answer arrives as
  a notice.`,

	"color": `/color <name|#RRGGBB>
  Change your name color.`,

	"events": `/events
  Show the events received since the previous input line, one per line, in
  their raw form. With --quiet this is the only way to see incoming chat.`,

	"help": `/help [command]
  Show the command overview, or the detailed help of one command.`,

	"quit": `/quit
  Send everything still queued, then disconnect. Ctrl-D does the same;
  Ctrl-C on a non-interactive console disconnects immediately.`,
}

// helpAliases maps alternative command names to their help entry.
var helpAliases = map[string]string{
	"leave":   "part",
	"whisper": "w",
	"exit":    "quit",
	"?":       "help",
}

// printHelp writes the overview, or the help for topic, to out.
func printHelp(out io.Writer, topic string) {
	if topic == "" {
		printHelpOverview(out)
		return
	}

	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(topic)), "/")
	if alias, ok := helpAliases[key]; ok {
		key = alias
	}

	if text, ok := commandHelp[key]; ok {
		fmt.Fprintln(out, text)
		return
	}

	fmt.Fprintf(out, "Error: No help for '%s'. Type /help to see available commands.\n", topic)
}

func printHelpOverview(out io.Writer) {
	fmt.Fprint(out, `Channel Commands:
  /join <channel>           Join a channel and make it current
  /part [channel]           Leave a channel (default: current)
  <text>                    Send a message to the current channel
  /me <text>                Send an action message
  /w <user> <text>          Whisper to a user

Moderation (current channel):
  /ban <user>               Ban a user
  /unban <user>             Lift a ban
  /timeout <user> [secs]    Temporarily ban a user (default: 600)
  /slow [secs|off]          Set or clear slow mode
  /clear                    Clear the chat history
  /mods                     List moderators
  /color <color>            Change your name color

Console:
  /events                   Show recent events in raw form
  /help [command]           Show help (or help for a specific command)
  /quit                     Send queued messages and exit
`)
}
