// Package chatprotocol turns a Twitch chat connection into typed events and
// rate-limited outbound commands.
//
// # Protocol Overview
//
// The service speaks a line-oriented, CRLF-terminated dialect of IRC over
// TCP, TLS or WebSocket. An Observer owns one connection and two goroutines:
// the inbound pump reads the connection, reassembles lines with a
// FrameDecoder, answers keepalives and dispatches events; the outbound pump
// writes queued commands no faster than the send interval, because the
// service answers command floods with a temporary ban.
//
// # Basic Usage
//
//	obs := chatprotocol.New("nickname", "oauth:token",
//	    chatprotocol.WithLogger(logger))
//
//	obs.Subscribe(func(event chatprotocol.Event) error {
//	    if event.Kind == chatprotocol.KindMessage {
//	        fmt.Printf("#%s <%s> %s\n", event.Channel, event.Nickname, event.Message)
//	    }
//	    return nil
//	})
//
//	if err := obs.Start(); err != nil {
//	    if errors.Is(err, chatprotocol.ErrAuthenticationFailed) {
//	        log.Fatal("bad token")
//	    }
//	    log.Fatal(err)
//	}
//	defer obs.Stop(false)
//
//	obs.JoinChannel("channel")
//	obs.SendMessage("channel", "hello", false)
//
// Instead of subscribing, callers may poll Observer.Events, which returns
// and clears everything received since the previous call.
//
// # Events
//
// Server commands map to event kinds through a fixed table (JOIN is
// KindJoin, PRIVMSG is KindMessage, and so on); anything else is KindCommand
// with the raw token in Event.Command. A line whose parameters do not have
// the expected shape is logged as a *MalformedCommandError and still
// dispatched with the fields that could be resolved.
//
// # Failures
//
// There is no automatic reconnection. When the connection fails outside of
// Stop, both pumps exit, subscribers receive one KindDisconnect event whose
// Err holds the cause, Observer.Done is closed and Observer.Err and Stop
// return the cause. A KindReconnect event from the service is delivered like
// any other event.
//
// # Thread Safety
//
// All Observer methods may be called from any goroutine. Start and Stop must
// not be called from inside an event handler.
package chatprotocol
