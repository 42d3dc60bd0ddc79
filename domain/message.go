// Package domain contains core concepts of the chat system.
// This file defines how chat lines and server notices are worded.
package domain

import (
	"fmt"
	"strings"
)

// FormatLine renders a broadcast line exactly as members and transcripts see it.
func FormatLine(sender, room, body string) string {
	return fmt.Sprintf("%s (%s): %s", sender, room, body)
}

func CreatedNotice(room string) string {
	return "You have created and joined the chat room: " + room
}

func JoinedNotice(room string) string {
	return "You have joined the chat room: " + room
}

func LeftNotice(room string) string {
	return "You have left the chat room: " + room
}

func RoomNotFoundNotice(room string) string {
	return fmt.Sprintf("Chat room %s does not exist.", room)
}

func ExitNotice(username string) string {
	return username + " has left the chat."
}

// RoomsNotice renders the /list answer.
func RoomsNotice(rooms []string) string {
	if len(rooms) == 0 {
		return NoRoomsNotice
	}
	return "Available chat rooms: " + strings.Join(rooms, ", ")
}

const (
	NoRoomsNotice       = "No chat rooms available."
	NotInRoomNotice     = "You are not in a chat room."
	NotInRoomChatNotice = "You are not in a chat room. Use /create or /join to enter a chat room."
)
