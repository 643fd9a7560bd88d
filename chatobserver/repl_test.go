package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatobserver/observer/chatprotocol"
)

// fakeClient records queued commands and hands out canned events.
type fakeClient struct {
	queued     []chatprotocol.Command
	events     []chatprotocol.Event
	drains     int
	enqueueErr error
	done       chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{done: make(chan struct{})}
}

func (c *fakeClient) Enqueue(cmds ...chatprotocol.Command) error {
	if c.enqueueErr != nil {
		return c.enqueueErr
	}
	c.queued = append(c.queued, cmds...)
	return nil
}

func (c *fakeClient) Events() []chatprotocol.Event {
	c.drains++
	events := c.events
	c.events = nil
	return events
}

func (c *fakeClient) Done() <-chan struct{} {
	return c.done
}

func (c *fakeClient) lines() []string {
	var lines []string
	for _, cmd := range c.queued {
		lines = append(lines, cmd.Format())
	}
	return lines
}

// scriptedInput returns the given lines, then io.EOF. It records prompts.
type scriptedInput struct {
	lines   []string
	prompts []string
	onRead  func(n int)
}

func (s *scriptedInput) GetLine(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.onRead != nil {
		s.onRead(len(s.prompts))
	}
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestREPLSendsCommands(t *testing.T) {
	client := newFakeClient()
	input := &scriptedInput{lines: []string{
		"/join dallas",
		"hello",
		"/me waves",
		"/part",
		"/quit",
		"never read",
	}}
	var out bytes.Buffer
	state := &replState{}

	runREPL(client, input, &out, state)

	assert.Equal(t, []string{
		"JOIN #dallas",
		"PRIVMSG #dallas :hello",
		"PRIVMSG #dallas :/me waves",
		"PART #dallas",
	}, client.lines())
	assert.Equal(t, []string{"> ", "[#dallas] > ", "[#dallas] > ", "[#dallas] > ", "> "}, input.prompts)
	assert.Equal(t, "", state.channel)
	assert.Equal(t, []string{"never read"}, input.lines)
}

func TestREPLReportsErrorsAndContinues(t *testing.T) {
	client := newFakeClient()
	input := &scriptedInput{lines: []string{"hello", "/dance", "/join dallas"}}
	var out bytes.Buffer

	runREPL(client, input, &out, &replState{})

	assert.Contains(t, out.String(), "Error: "+errNoChannel.Error())
	assert.Contains(t, out.String(), "Error: unknown command /dance")
	assert.Equal(t, []string{"JOIN #dallas"}, client.lines())
}

func TestREPLEnqueueFailureKeepsChannel(t *testing.T) {
	client := newFakeClient()
	client.enqueueErr = chatprotocol.ErrInvalidCommand
	input := &scriptedInput{lines: []string{"/join dallas"}}
	var out bytes.Buffer
	state := &replState{channel: "ronni"}

	runREPL(client, input, &out, state)

	assert.Equal(t, "ronni", state.channel)
	assert.Contains(t, out.String(), "Error: invalid command")
}

func TestREPLEvents(t *testing.T) {
	client := newFakeClient()
	input := &scriptedInput{lines: []string{"/events", "/events"}}
	input.onRead = func(n int) {
		if n == 1 {
			client.events = []chatprotocol.Event{
				{Kind: chatprotocol.KindJoin, Channel: "dallas", Nickname: "ronni"},
			}
		}
	}
	var out bytes.Buffer

	runREPL(client, input, &out, &replState{})

	assert.Contains(t, out.String(), "join #dallas <ronni>")
	assert.Contains(t, out.String(), "No new events.")
}

func TestREPLDrainsQueueAfterEachLine(t *testing.T) {
	client := newFakeClient()
	input := &scriptedInput{lines: []string{"/join dallas", "hi", "/help"}}

	runREPL(client, input, io.Discard, &replState{})

	assert.Equal(t, 3, client.drains)
}

func TestREPLStopsWhenConnectionCloses(t *testing.T) {
	client := newFakeClient()
	input := &scriptedInput{lines: []string{"/join dallas", "hi"}}
	input.onRead = func(n int) {
		if n == 1 {
			close(client.done)
		}
	}
	var out bytes.Buffer

	runREPL(client, input, &out, &replState{})

	assert.Equal(t, []string{"JOIN #dallas"}, client.lines())
	assert.Contains(t, out.String(), "Connection closed.")
}

func TestREPLInputError(t *testing.T) {
	client := newFakeClient()
	var out bytes.Buffer

	runREPL(client, errorInput{errors.New("terminal gone")}, &out, &replState{})

	assert.Contains(t, out.String(), "Error: terminal gone")
}

type errorInput struct{ err error }

func (e errorInput) GetLine(string) (string, error) { return "", e.err }

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name  string
		event chatprotocol.Event
		want  string
	}{
		{
			"Message",
			chatprotocol.Event{Kind: chatprotocol.KindMessage, Channel: "dallas", Nickname: "ronni", Message: "Kappa"},
			"#dallas <ronni> Kappa",
		},
		{
			"Message with display name",
			chatprotocol.Event{
				Kind: chatprotocol.KindMessage, Channel: "dallas", Nickname: "ronni", Message: "hi",
				Tags: map[string]string{"display-name": "Ronni"},
			},
			"#dallas <Ronni> hi",
		},
		{
			"Action",
			chatprotocol.Event{Kind: chatprotocol.KindMessage, Channel: "dallas", Nickname: "ronni", Message: "\x01ACTION waves\x01"},
			"#dallas * ronni waves",
		},
		{
			"Whisper",
			chatprotocol.Event{Kind: chatprotocol.KindWhisper, Nickname: "ronni", Message: "psst"},
			"[whisper] <ronni> psst",
		},
		{
			"Join",
			chatprotocol.Event{Kind: chatprotocol.KindJoin, Channel: "dallas", Nickname: "ronni"},
			"#dallas --> ronni joined",
		},
		{
			"Leave",
			chatprotocol.Event{Kind: chatprotocol.KindLeave, Channel: "dallas", Nickname: "ronni"},
			"#dallas <-- ronni left",
		},
		{
			"Mode",
			chatprotocol.Event{Kind: chatprotocol.KindMode, Channel: "dallas", Nickname: "ronni", Mode: "+o"},
			"#dallas *** ronni is now a moderator",
		},
		{
			"Notice",
			chatprotocol.Event{Kind: chatprotocol.KindNotice, Channel: "dallas", Message: "The moderators of this channel are: ronni"},
			"#dallas -!- The moderators of this channel are: ronni",
		},
		{
			"Disconnect",
			chatprotocol.NewDisconnectEvent(errors.New("read failed")),
			"*** Disconnected: read failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := formatEvent(tt.event)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, kind := range []chatprotocol.EventKind{chatprotocol.KindCommand, chatprotocol.KindRoomState, chatprotocol.KindUserState} {
		_, ok := formatEvent(chatprotocol.Event{Kind: kind})
		assert.False(t, ok, "%s should not be printed", kind)
	}
}

func TestEventPrinter(t *testing.T) {
	var buf bytes.Buffer
	printer := eventPrinter(&syncWriter{w: &buf})

	require.NoError(t, printer(chatprotocol.Event{Kind: chatprotocol.KindJoin, Channel: "dallas", Nickname: "ronni"}))
	require.NoError(t, printer(chatprotocol.Event{Kind: chatprotocol.KindRoomState, Channel: "dallas"}))

	assert.Equal(t, "#dallas --> ronni joined\n", buf.String())
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}
