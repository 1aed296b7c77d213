package proto

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxTokens is the number of whitespace separated tokens a request line is split into.
	// The last token keeps the rest of the line, internal whitespace included.
	MaxTokens = 3

	CommandNick    = "nick"
	CommandJoin    = "join"
	CommandPart    = "part"
	CommandMessage = "message"
	CommandReplay  = "replay"

	ReplyOK    = "ok"
	ReplyError = "error"

	// ServerAuthor is the author of notices generated by the relay itself.
	ServerAuthor = "*server*"

	// ChannelPrefix starts every channel name.
	ChannelPrefix = "#"

	// ReservedPrefix marks names clients may not take as a nick.
	ReservedPrefix = "*"
)

// IsSeparator reports whether r separates tokens: Unicode white space plus
// the ASCII information separators U+001C..U+001F.
func IsSeparator(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Split breaks a request line into at most MaxTokens tokens.
// Leading whitespace is skipped; the final token is the unsplit remainder.
func Split(line string) []string {
	tokens := make([]string, 0, MaxTokens)
	rest := line
	for len(tokens) < MaxTokens {
		rest = strings.TrimLeftFunc(rest, IsSeparator)
		if rest == "" {
			break
		}
		if len(tokens) == MaxTokens-1 {
			tokens = append(tokens, rest)
			break
		}
		end := strings.IndexFunc(rest, IsSeparator)
		if end < 0 {
			tokens = append(tokens, rest)
			break
		}
		tokens = append(tokens, rest[:end])
		rest = rest[end:]
	}
	return tokens
}

// ValidLine reports whether a request line can be processed as text.
func ValidLine(line string) bool {
	return utf8.ValidString(line)
}

// FormatOK renders a success reply.
func FormatOK(text string) string {
	return ReplyOK + " " + text
}

// FormatError renders an error reply.
func FormatError(text string) string {
	return ReplyError + " " + text
}

// FormatMessage renders a delivered or replayed channel message.
func FormatMessage(channel string, ts int64, author, text string) string {
	var b strings.Builder
	b.Grow(len(CommandMessage) + len(channel) + len(author) + len(text) + 24)
	b.WriteString(CommandMessage)
	b.WriteByte(' ')
	b.WriteString(channel)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(ts, 10))
	b.WriteByte(' ')
	b.WriteString(author)
	b.WriteByte(' ')
	b.WriteString(text)
	return b.String()
}

// ParseTimestamp accepts one or more ASCII digits that fit in an int64.
func ParseTimestamp(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
