package domain

import "strings"

// RoomKey addresses the live channel shared by a pair of participants.
type RoomKey string

// NewRoomKey derives the canonical room key for an unordered pair of
// user ids. The pair is sorted ascending before joining, so both
// participants address the same logical room no matter which side
// computes the key.
func NewRoomKey(userA, userB string) RoomKey {
	if userB < userA {
		userA, userB = userB, userA
	}
	return RoomKey(userA + "_" + userB)
}

// Participants returns the two user ids of the pair in canonical order.
// User ids must not contain an underscore; the observed wire contract
// uses numeric ids.
func (k RoomKey) Participants() (string, string) {
	a, b, _ := strings.Cut(string(k), "_")
	return a, b
}

// Contains reports whether the given user is one of the two participants.
func (k RoomKey) Contains(user string) bool {
	a, b := k.Participants()
	return user == a || user == b
}
