package models

import "time"

// PageInfo summarizes one in-memory download page instance.
type PageInfo struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"sessionId"`
	Status       PageStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastAccessed time.Time  `json:"lastAccessed"`
}
