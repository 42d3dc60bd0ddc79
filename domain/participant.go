// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// DuplicatePolicy decides what happens when a username is registered twice.
type DuplicatePolicy string

const (
	// OverwritePolicy lets the newest connection take the name over.
	// The previous connection stays open but stops receiving room traffic.
	OverwritePolicy DuplicatePolicy = "overwrite"
	// EvictPolicy kicks the previous holder before registering the new one.
	EvictPolicy DuplicatePolicy = "evict"
)

// KickSentinel is the line a server sends to tell a client its session is over.
const KickSentinel = "/exit"
