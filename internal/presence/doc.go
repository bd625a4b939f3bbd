// Package presence tracks live connections for the notification push path.
//
// Registry answers "is this user online" from the set of connections each user owns.
// Rooms groups connections into user:, role: and exhibition: broadcast rooms.
// Hub ties both to the live senders and performs best-effort pushes. All three are
// safe for concurrent use; a single Hub is created at startup and injected wherever
// presence or push is needed.
package presence
