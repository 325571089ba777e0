package models

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

type ThreadKind = uint8

const (
	// ThreadKindCouple is a direct thread between exactly two accounts.
	ThreadKindCouple = ThreadKind(iota)
	ThreadKindGroup
)

type DirectThread struct {
	BaseModel

	Kind ThreadKind `json:"kind"`

	WorkspaceID uint      `json:"workspace_id"`
	Workspace   Workspace `json:"workspace"`
	AccountID   uint      `json:"account_id"`

	Participants []ThreadParticipant `json:"participants"`
}

func (v DirectThread) DisplayText() string {
	names := lo.FilterMap(v.Participants, func(item ThreadParticipant, index int) (string, bool) {
		return item.Account.Nick, item.DepartedAt == nil && len(item.Account.Nick) > 0
	})
	return strings.Join(names, ", ")
}

type ThreadParticipant struct {
	BaseModel

	ThreadID  uint         `json:"thread_id"`
	AccountID uint         `json:"account_id"`
	Thread    DirectThread `json:"thread"`
	Account   Account      `json:"account"`

	// DepartedAt is set when the participant leaves a group thread; the row is
	// kept so history stays attributable.
	DepartedAt *time.Time `json:"departed_at"`
}
