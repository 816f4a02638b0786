package server

import "errors"

const maxRoomIDLength = 32

// ValidateRoomID bounds what clients may name a room: non-empty, at most 32
// characters, visible ASCII. Room ids are free-form ("main", "t1", lobby
// codes), so there is no alphabet beyond that.
func ValidateRoomID(id string) error {
	if id == "" {
		return errors.New("ROOM_ID_INVALID: Room id cannot be empty")
	}
	if len(id) > maxRoomIDLength {
		return errors.New("ROOM_ID_INVALID: Room id too long (max 32 characters)")
	}
	for _, ch := range id {
		if ch <= ' ' || ch > '~' {
			return errors.New("ROOM_ID_INVALID: Room id must be visible ASCII")
		}
	}
	return nil
}
