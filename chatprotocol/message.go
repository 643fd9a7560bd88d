package chatprotocol

import (
	"fmt"
	"strings"
)

// ServerMessage is one server line split into its grammatical parts.
type ServerMessage struct {
	Tags     map[string]string // nil when the line has no tag block
	Prefix   string            // nick!user@host or a bare server name
	Nickname string            // Prefix up to the first '!'
	Command  string            // alphabetic word or 3-digit numeric
	Params   string            // everything after the command, may be empty
}

// ParseServerMessage splits a line into tags, prefix, command and
// parameters. The line must not include the terminator.
func ParseServerMessage(line string) (ServerMessage, error) {
	var msg ServerMessage
	rest := line

	if strings.HasPrefix(rest, TagPrefix) {
		block, after, ok := strings.Cut(rest[len(TagPrefix):], " ")
		if !ok {
			return ServerMessage{}, fmt.Errorf("tag block without message: %q", line)
		}
		msg.Tags = parseTags(block)
		rest = strings.TrimLeft(after, " ")
	}

	if !strings.HasPrefix(rest, ":") {
		return ServerMessage{}, fmt.Errorf("missing prefix: %q", line)
	}
	prefix, after, ok := strings.Cut(rest[1:], " ")
	if !ok || prefix == "" {
		return ServerMessage{}, fmt.Errorf("missing command: %q", line)
	}
	msg.Prefix = prefix
	msg.Nickname, _, _ = strings.Cut(prefix, "!")

	command, params, _ := strings.Cut(strings.TrimLeft(after, " "), " ")
	if !isCommandToken(command) {
		return ServerMessage{}, fmt.Errorf("invalid command token %q: %q", command, line)
	}
	msg.Command = command
	msg.Params = strings.TrimLeft(params, " ")

	return msg, nil
}

// parseTags splits a tag block on ';' and each entry on its first '='.
// Empty values are kept as empty strings.
func parseTags(block string) map[string]string {
	tags := make(map[string]string)
	for _, pair := range strings.Split(block, ";") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		tags[key] = value
	}
	return tags
}

// isCommandToken reports whether s is an alphabetic word or a 3-digit
// numeric reply code.
func isCommandToken(s string) bool {
	if s == "" {
		return false
	}
	if len(s) == 3 && isDigit(s[0]) && isDigit(s[1]) && isDigit(s[2]) {
		return true
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
