// =============================================================================
// repl.go - Console Read-Eval-Print Loop
// =============================================================================
//
// Reads console lines, translates them into chat commands and queues them on
// the observer. Incoming events are printed by a subscriber as they arrive,
// so the loop itself only writes command feedback.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chatobserver/observer/chatprotocol"
)

// chatClient is the part of the observer the console uses.
type chatClient interface {
	Enqueue(cmds ...chatprotocol.Command) error
	Events() []chatprotocol.Event
	Done() <-chan struct{}
}

// lineReader supplies console input.
type lineReader interface {
	GetLine(prompt string) (string, error)
}

// replState is what the console remembers between lines.
type replState struct {
	// channel is where plain text goes; empty until the first /join.
	channel string
}

func (s *replState) prompt() string {
	if s.channel == "" {
		return "> "
	}
	return "[" + chatprotocol.ChannelMarker + s.channel + "] > "
}

// runREPL runs the console until /quit, end of input or a lost connection.
func runREPL(client chatClient, input lineReader, out io.Writer, state *replState) {
	for {
		select {
		case <-client.Done():
			fmt.Fprintln(out, "Connection closed.")
			return
		default:
		}

		line, err := input.GetLine(state.prompt())
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			fmt.Fprintln(out)
			return
		}

		t, err := translateInput(line, state.channel)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		switch t.kind {
		case inputQuit:
			return

		case inputHelp:
			printHelp(out, t.topic)

		case inputEvents:
			events := client.Events()
			if len(events) == 0 {
				fmt.Fprintln(out, "No new events.")
			}
			for _, event := range events {
				fmt.Fprintln(out, event.String())
			}
			continue

		case inputSend:
			if err := client.Enqueue(t.commands...); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			state.channel = t.channel
		}

		// Keep the inbound queue bounded; /events shows what arrived since
		// the previous line.
		client.Events()
	}
}

// syncWriter serializes writes from the event subscriber and the REPL.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// eventPrinter returns a subscriber printing chat events to out.
func eventPrinter(out io.Writer) chatprotocol.EventHandler {
	return func(event chatprotocol.Event) error {
		if text, ok := formatEvent(event); ok {
			_, err := fmt.Fprintln(out, text)
			return err
		}
		return nil
	}
}

// actionPrefix and actionSuffix wrap "/me" messages on the wire.
const (
	actionPrefix = "\x01ACTION "
	actionSuffix = "\x01"
)

// formatEvent renders an event for the console. Bookkeeping events such as
// numeric replies and state updates are not shown.
func formatEvent(e chatprotocol.Event) (string, bool) {
	channel := chatprotocol.ChannelMarker + e.Channel

	switch e.Kind {
	case chatprotocol.KindMessage:
		if strings.HasPrefix(e.Message, actionPrefix) {
			text := strings.TrimSuffix(strings.TrimPrefix(e.Message, actionPrefix), actionSuffix)
			return fmt.Sprintf("%s * %s %s", channel, displayName(e), text), true
		}
		return fmt.Sprintf("%s <%s> %s", channel, displayName(e), e.Message), true

	case chatprotocol.KindWhisper:
		return fmt.Sprintf("[whisper] <%s> %s", displayName(e), e.Message), true

	case chatprotocol.KindJoin:
		return fmt.Sprintf("%s --> %s joined", channel, e.Nickname), true

	case chatprotocol.KindLeave:
		return fmt.Sprintf("%s <-- %s left", channel, e.Nickname), true

	case chatprotocol.KindMode:
		if e.Mode == "+o" {
			return fmt.Sprintf("%s *** %s is now a moderator", channel, e.Nickname), true
		}
		return fmt.Sprintf("%s *** %s is no longer a moderator", channel, e.Nickname), true

	case chatprotocol.KindNotice, chatprotocol.KindUserNotice:
		if e.Channel == "" {
			return fmt.Sprintf("-!- %s", e.Message), e.Message != ""
		}
		return fmt.Sprintf("%s -!- %s", channel, e.Message), true

	case chatprotocol.KindClearChat:
		return "*** Chat was cleared", true

	case chatprotocol.KindHostTarget:
		return fmt.Sprintf("%s *** Hosting %s", channel, e.Message), true

	case chatprotocol.KindReconnect:
		return "*** The server is restarting; reconnect to keep chatting", true

	case chatprotocol.KindDisconnect:
		return fmt.Sprintf("*** Disconnected: %v", e.Err), true
	}
	return "", false
}

// displayName prefers the display-name tag over the login nickname.
func displayName(e chatprotocol.Event) string {
	if name := e.Tags["display-name"]; name != "" {
		return name
	}
	return e.Nickname
}
