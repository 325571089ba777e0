package models

import "fmt"

type Channel struct {
	BaseModel

	Alias       string          `json:"alias" gorm:"index"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Members     []ChannelMember `json:"members"`
	Events      []Event         `json:"events" gorm:"foreignKey:ChannelID"`
	Calls       []CallSession   `json:"calls" gorm:"foreignKey:ChannelID"`
	AccountID   uint            `json:"account_id"`
	IsPublic    bool            `json:"is_public"`

	WorkspaceID uint      `json:"workspace_id"`
	Workspace   Workspace `json:"workspace"`
}

func (v Channel) DisplayText() string {
	if len(v.Name) > 0 {
		return v.Name
	}
	return fmt.Sprintf("#%s", v.Alias)
}

type NotifyLevel = int8

const (
	NotifyLevelAll = NotifyLevel(iota)
	NotifyLevelMentioned
	NotifyLevelNone
)

type ChannelMember struct {
	BaseModel

	ChannelID  uint        `json:"channel_id"`
	AccountID  uint        `json:"account_id"`
	Channel    Channel     `json:"channel"`
	Account    Account     `json:"account"`
	Notify     NotifyLevel `json:"notify"`
	PowerLevel int         `json:"power_level"`

	// ReadingAnchor points at the newest event the member has read.
	ReadingAnchor *uint `json:"reading_anchor"`
}
