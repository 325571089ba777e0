package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/gateway"
	"github.com/banterhq/banter/pkg/internal/models"
)

// The guard functions below are the single authority on who may touch what.
// They answer with the error taxonomy: not_found when the resource does not
// exist, not_member when the account is outside the workspace, forbidden when
// it is inside the workspace but still has no access.

func RequireWorkspaceMember(accountId uint, workspaceId uint) (models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	if err := database.C.
		Where(&models.WorkspaceMember{AccountID: accountId, WorkspaceID: workspaceId}).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return member, NewNotMember("you are not a member of this workspace")
		}
		return member, err
	}
	return member, nil
}

// RequireChannelAccess returns the channel and, when the account holds one,
// its channel membership. Public channels stay reachable for workspace
// members without a membership row; private ones do not.
func RequireChannelAccess(accountId uint, channelId uint) (models.Channel, *models.ChannelMember, error) {
	if channel, member, ok := GetCachedChannelIdentity(channelId, accountId); ok {
		return channel, member, nil
	}

	channel, err := GetChannel(channelId)
	if err != nil {
		return channel, nil, err
	}

	if _, err := RequireWorkspaceMember(accountId, channel.WorkspaceID); err != nil {
		return channel, nil, err
	}

	member, err := GetChannelMember(models.Account{BaseModel: models.BaseModel{ID: accountId}}, channel.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return channel, nil, err
		}
		if !channel.IsPublic {
			return channel, nil, NewForbidden("you are not a member of this channel")
		}
		CacheChannelIdentity(channel, nil, accountId)
		return channel, nil, nil
	}

	CacheChannelIdentity(channel, &member, accountId)
	return channel, &member, nil
}

// RequireThreadAccess admits only current (non-departed) participants.
func RequireThreadAccess(accountId uint, threadId uint) (models.DirectThread, models.ThreadParticipant, error) {
	var participant models.ThreadParticipant

	thread, err := GetThread(threadId)
	if err != nil {
		return thread, participant, err
	}

	participant, err = GetThreadParticipant(models.Account{BaseModel: models.BaseModel{ID: accountId}}, thread.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread, participant, NewForbidden("you are not a participant of this thread")
		}
		return thread, participant, err
	}

	return thread, participant, nil
}

// RequireCallParticipant admits only accounts holding an open participant
// record in an ongoing call. Signaling relies on this for every relay op.
func RequireCallParticipant(accountId uint, callId uint) (models.CallSession, models.CallParticipant, error) {
	var participant models.CallParticipant

	call, err := GetCall(callId)
	if err != nil {
		return call, participant, err
	}
	if !call.IsOngoing() {
		return call, participant, NewNotFound("call #%d has already ended", call.ID)
	}

	if err := database.C.
		Where("call_id = ? AND account_id = ? AND left_at IS NULL", call.ID, accountId).
		First(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return call, participant, NewForbidden("you are not a participant of this call")
		}
		return call, participant, err
	}

	return call, participant, nil
}

// Scope is a resolved channel-or-thread target. Exactly one side is set.
type Scope struct {
	WorkspaceID uint
	ChannelID   *uint
	ThreadID    *uint
	Channel     *models.Channel
	Thread      *models.DirectThread
}

func (s Scope) Room() string {
	if s.ChannelID != nil {
		return gateway.ChannelRoom(*s.ChannelID)
	}
	return gateway.ThreadRoom(*s.ThreadID)
}

// MemberIDs lists every account attached to the scope, for personal fan-out.
func (s Scope) MemberIDs() ([]uint, error) {
	if s.ChannelID != nil {
		members, err := ListChannelMember(*s.ChannelID, 0, 0)
		if err != nil {
			return nil, err
		}
		ids := make([]uint, 0, len(members))
		for _, member := range members {
			ids = append(ids, member.AccountID)
		}
		return ids, nil
	}

	var participants []models.ThreadParticipant
	if err := database.C.
		Where("thread_id = ? AND departed_at IS NULL", *s.ThreadID).
		Find(&participants).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(participants))
	for _, participant := range participants {
		ids = append(ids, participant.AccountID)
	}
	return ids, nil
}

// RequireScopeAccess resolves and authorizes a channel-or-thread pair coming
// off the wire. Passing both or neither is a validation error.
func RequireScopeAccess(accountId uint, channelId *uint, threadId *uint) (Scope, error) {
	switch {
	case channelId != nil && threadId == nil:
		channel, _, err := RequireChannelAccess(accountId, *channelId)
		if err != nil {
			return Scope{}, err
		}
		return Scope{
			WorkspaceID: channel.WorkspaceID,
			ChannelID:   &channel.ID,
			Channel:     &channel,
		}, nil
	case threadId != nil && channelId == nil:
		thread, _, err := RequireThreadAccess(accountId, *threadId)
		if err != nil {
			return Scope{}, err
		}
		return Scope{
			WorkspaceID: thread.WorkspaceID,
			ThreadID:    &thread.ID,
			Thread:      &thread,
		}, nil
	default:
		return Scope{}, NewValidation("exactly one of channel_id or thread_id is required")
	}
}
