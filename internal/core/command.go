package core

import "github.com/vovakirdan/wirechat-relay/internal/proto"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandUnknown is any line that matches no command.
	CommandUnknown CommandKind = iota
	// CommandNick sets or changes the client nick.
	CommandNick
	// CommandJoin subscribes the client to a channel, creating it if needed.
	CommandJoin
	// CommandPart unsubscribes the client from a channel.
	CommandPart
	// CommandSendMessage delivers text to every channel member.
	CommandSendMessage
	// CommandReplay sends the channel log since a timestamp to the client.
	CommandReplay
)

func (k CommandKind) String() string {
	switch k {
	case CommandNick:
		return proto.CommandNick
	case CommandJoin:
		return proto.CommandJoin
	case CommandPart:
		return proto.CommandPart
	case CommandSendMessage:
		return proto.CommandMessage
	case CommandReplay:
		return proto.CommandReplay
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind   CommandKind
	Target string // nick or channel name
	Arg    string // message text or replay timestamp
}

// ParseCommand maps the tokens of a request line to a command.
// The keyword only counts when it comes with its expected number of tokens.
func ParseCommand(tokens []string) Command {
	switch len(tokens) {
	case 2:
		cmd := Command{Target: tokens[1]}
		switch tokens[0] {
		case proto.CommandNick:
			cmd.Kind = CommandNick
		case proto.CommandJoin:
			cmd.Kind = CommandJoin
		case proto.CommandPart:
			cmd.Kind = CommandPart
		default:
			return Command{Kind: CommandUnknown}
		}
		return cmd
	case 3:
		cmd := Command{Target: tokens[1], Arg: tokens[2]}
		switch tokens[0] {
		case proto.CommandMessage:
			cmd.Kind = CommandSendMessage
		case proto.CommandReplay:
			cmd.Kind = CommandReplay
		default:
			return Command{Kind: CommandUnknown}
		}
		return cmd
	default:
		return Command{Kind: CommandUnknown}
	}
}

// requiresNick reports whether the command is refused to anonymous clients.
func (c Command) requiresNick() bool {
	return c.Kind != CommandNick && c.Kind != CommandUnknown
}
