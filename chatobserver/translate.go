// =============================================================================
// translate.go - Console Input to Chat Commands
// =============================================================================
//
// Translates what the user types at the console into chat protocol commands.
// Slash-commands map onto the convenience constructors in chatprotocol;
// anything else is a chat message to the current channel.
//
//	/join dallas          ->  JOIN #dallas
//	/w ronni hi           ->  PRIVMSG :/w ronni hi
//	Kappa                 ->  PRIVMSG #dallas :Kappa
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chatobserver/observer/chatprotocol"
)

// defaultTimeout is used by /timeout when no duration is given.
const defaultTimeout = 10 * time.Minute

var errNoChannel = errors.New("no current channel, use /join <channel> first")

// inputKind tells the REPL what to do with a translated line.
type inputKind int

const (
	// inputNone means the line was blank.
	inputNone inputKind = iota
	// inputSend means the commands should be queued.
	inputSend
	// inputQuit ends the session.
	inputQuit
	// inputHelp prints help for topic.
	inputHelp
	// inputEvents prints the queued events.
	inputEvents
)

// translation is the result of translating one console line.
type translation struct {
	kind     inputKind
	commands []chatprotocol.Command

	// channel is the current channel after the line takes effect.
	channel string

	// topic is the help topic for inputHelp.
	topic string
}

// translateInput converts one console line. current is the channel plain
// text goes to; the returned translation carries the channel that is current
// afterwards.
func translateInput(line, current string) (translation, error) {
	trimmed := strings.TrimSpace(line)
	result := translation{kind: inputNone, channel: current}
	if trimmed == "" {
		return result, nil
	}

	if !strings.HasPrefix(trimmed, "/") {
		if current == "" {
			return result, errNoChannel
		}
		return send(result, chatprotocol.NewMessageCommand(current, trimmed)), nil
	}

	parts := strings.SplitN(trimmed, " ", 2)
	keyword := strings.ToLower(parts[0])
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	switch keyword {
	case "/quit", "/exit":
		result.kind = inputQuit
		return result, nil

	case "/help", "/?":
		result.kind = inputHelp
		result.topic = args
		return result, nil

	case "/events":
		result.kind = inputEvents
		return result, nil

	case "/join":
		channel := normalizeChannel(args)
		if channel == "" {
			return result, usageError(keyword)
		}
		result.channel = channel
		return send(result, chatprotocol.NewJoinCommand(channel)), nil

	case "/part", "/leave":
		channel := normalizeChannel(args)
		if channel == "" {
			channel = current
		}
		if channel == "" {
			return result, errNoChannel
		}
		if channel == current {
			result.channel = ""
		}
		return send(result, chatprotocol.NewPartCommand(channel)), nil

	case "/w", "/whisper":
		user, text, ok := strings.Cut(args, " ")
		text = strings.TrimSpace(text)
		if !ok || user == "" || text == "" {
			return result, usageError(keyword)
		}
		return send(result, chatprotocol.NewWhisperCommand(user, text)), nil
	}

	if _, ok := commandUsage[strings.TrimPrefix(keyword, "/")]; !ok {
		return result, unknownCommandError(keyword)
	}

	// Everything below acts on the current channel.
	if current == "" {
		return result, errNoChannel
	}

	switch keyword {
	case "/me":
		if args == "" {
			return result, usageError(keyword)
		}
		return send(result, chatprotocol.NewActionCommand(current, args)), nil

	case "/ban", "/unban":
		if args == "" || strings.Contains(args, " ") {
			return result, usageError(keyword)
		}
		if keyword == "/ban" {
			return send(result, chatprotocol.NewBanCommand(current, args)), nil
		}
		return send(result, chatprotocol.NewUnbanCommand(current, args)), nil

	case "/timeout":
		user, rest, _ := strings.Cut(args, " ")
		if user == "" {
			return result, usageError(keyword)
		}
		d := defaultTimeout
		if rest = strings.TrimSpace(rest); rest != "" {
			parsed, err := parseSeconds(rest)
			if err != nil {
				return result, err
			}
			d = parsed
		}
		return send(result, chatprotocol.NewTimeoutCommand(current, user, d)), nil

	case "/slow":
		d := time.Duration(0)
		if args != "" && args != "off" {
			parsed, err := parseSeconds(args)
			if err != nil {
				return result, err
			}
			d = parsed
		}
		return send(result, chatprotocol.NewSlowCommand(current, d)), nil

	case "/clear":
		return send(result, chatprotocol.NewClearCommand(current)), nil

	case "/mods":
		return send(result, chatprotocol.NewModeratorsCommand(current)), nil

	case "/color":
		if args == "" {
			return result, usageError(keyword)
		}
		return send(result, chatprotocol.NewColorCommand(current, args)), nil

	default:
		return result, unknownCommandError(keyword)
	}
}

func send(t translation, cmds ...chatprotocol.Command) translation {
	t.kind = inputSend
	t.commands = cmds
	return t
}

// normalizeChannel lower-cases a channel name and drops the marker. Channel
// names on the service are always lower case.
func normalizeChannel(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), chatprotocol.ChannelMarker))
}

// parseSeconds accepts a plain number of seconds or a Go duration string.
func parseSeconds(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func unknownCommandError(keyword string) error {
	return fmt.Errorf("unknown command %s, type /help for a list", keyword)
}

func usageError(keyword string) error {
	if usage, ok := commandUsage[strings.TrimPrefix(keyword, "/")]; ok {
		return fmt.Errorf("usage: %s", usage)
	}
	return fmt.Errorf("invalid arguments for %s", keyword)
}
