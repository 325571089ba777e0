package models

import "time"

type CallSession struct {
	BaseModel

	// Room is the signaling room identifier baked into call tokens.
	Room    string     `json:"room" gorm:"uniqueIndex"`
	EndedAt *time.Time `json:"ended_at"`

	WorkspaceID uint          `json:"workspace_id"`
	ChannelID   *uint         `json:"channel_id"`
	ThreadID    *uint         `json:"thread_id"`
	Channel     *Channel      `json:"channel,omitempty"`
	Thread      *DirectThread `json:"thread,omitempty"`

	FounderID uint    `json:"founder_id"`
	Founder   Account `json:"founder"`

	Participants []CallParticipant `json:"participants" gorm:"foreignKey:CallID"`
}

func (v CallSession) IsOngoing() bool {
	return v.EndedAt == nil
}

type CallParticipant struct {
	BaseModel

	CallID    uint        `json:"call_id" gorm:"index"`
	AccountID uint        `json:"account_id" gorm:"index"`
	Call      CallSession `json:"call"`
	Account   Account     `json:"account"`

	// LeftAt closes the record; an account holds at most one open record per
	// call, rejoining opens a fresh one.
	LeftAt *time.Time `json:"left_at"`
}
