package models

type Workspace struct {
	BaseModel

	Alias       string `json:"alias" gorm:"uniqueIndex"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`

	AccountID uint    `json:"account_id"`
	Account   Account `json:"account"`

	Members  []WorkspaceMember `json:"members"`
	Channels []Channel         `json:"channels"`
}

type WorkspaceMember struct {
	BaseModel

	WorkspaceID uint      `json:"workspace_id"`
	AccountID   uint      `json:"account_id"`
	Workspace   Workspace `json:"workspace"`
	Account     Account   `json:"account"`
	PowerLevel  int       `json:"power_level"`
}
