package models

import "time"

// Room is a schedulable teaching room.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter describes query params for listing rooms.
type RoomFilter struct {
	MinCapacity int
	Page        int
	PageSize    int
}
