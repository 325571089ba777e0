package models

import "time"

type Account struct {
	BaseModel

	Name   string  `json:"name" gorm:"uniqueIndex"`
	Nick   string  `json:"nick"`
	Avatar *string `json:"avatar"`

	// LastSeenAt is persisted when the last connection of the account goes away.
	LastSeenAt *time.Time `json:"last_seen_at"`

	Workspaces []WorkspaceMember `json:"workspaces"`
}
