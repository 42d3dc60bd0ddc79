package domain

import "strings"

type CommandKind int

const (
	ChatCommand CommandKind = iota
	ExitCommand
	CreateCommand
	JoinCommand
	LeaveCommand
	ListCommand
)

const (
	exitKeyword   = "/exit"
	createKeyword = "/create "
	joinKeyword   = "/join "
	leaveKeyword  = "/leave"
	listKeyword   = "/list"
)

// Command is one received line once classified.
// Argument holds the room name for create/join and the body for chat lines.
type Command struct {
	Kind     CommandKind
	Argument string
}

// ParseCommand classifies a line by literal prefix, in priority order.
// Room names are the exact remainder of the line, spaces included.
func ParseCommand(line string) Command {
	switch {
	case line == exitKeyword:
		return Command{Kind: ExitCommand}
	case strings.HasPrefix(line, createKeyword):
		return Command{Kind: CreateCommand, Argument: line[len(createKeyword):]}
	case strings.HasPrefix(line, joinKeyword):
		return Command{Kind: JoinCommand, Argument: line[len(joinKeyword):]}
	case strings.HasPrefix(line, leaveKeyword):
		return Command{Kind: LeaveCommand}
	case strings.HasPrefix(line, listKeyword):
		return Command{Kind: ListCommand}
	default:
		return Command{Kind: ChatCommand, Argument: line}
	}
}
