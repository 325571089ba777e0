package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/gateway"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/proto"
)

func GetCall(id uint) (models.CallSession, error) {
	var call models.CallSession
	if err := database.C.Where("id = ?", id).
		Preload("Founder").
		First(&call).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return call, NewNotFound("call #%d was not found", id)
		}
		return call, err
	}
	return call, nil
}

func scopedCalls(scope Scope) *gorm.DB {
	if scope.ChannelID != nil {
		return database.C.Where("channel_id = ?", *scope.ChannelID)
	}
	return database.C.Where("thread_id = ?", *scope.ThreadID)
}

// GetOngoingCall finds the single active call in a scope; channel members
// discover channel calls through this rather than personal invites.
func GetOngoingCall(scope Scope) (models.CallSession, error) {
	var call models.CallSession
	if err := scopedCalls(scope).
		Where("ended_at IS NULL").
		Preload("Founder").
		Order("created_at DESC").
		First(&call).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return call, NewNotFound("no ongoing call in this scope")
		}
		return call, err
	}
	return call, nil
}

func ListCall(scope Scope, take int, offset int) ([]models.CallSession, error) {
	var calls []models.CallSession
	if err := scopedCalls(scope).
		Limit(take).Offset(offset).
		Preload("Founder").
		Order("created_at DESC").
		Find(&calls).Error; err != nil {
		return calls, err
	}
	return calls, nil
}

// ListCallParticipant lists the open participations of an ongoing call.
func ListCallParticipant(callId uint) ([]models.CallParticipant, error) {
	var participants []models.CallParticipant
	if err := database.C.
		Where("call_id = ? AND left_at IS NULL", callId).
		Preload("Account").
		Find(&participants).Error; err != nil {
		return participants, err
	}
	return participants, nil
}

func CountOpenCallParticipant(callId uint) (int64, error) {
	var count int64
	if err := database.C.Model(&models.CallParticipant{}).
		Where("call_id = ? AND left_at IS NULL", callId).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CallScope rebuilds the addressing scope of a persisted call without
// re-running access checks; callers already hold an authorized call.
func CallScope(call models.CallSession) Scope {
	return Scope{
		WorkspaceID: call.WorkspaceID,
		ChannelID:   call.ChannelID,
		ThreadID:    call.ThreadID,
	}
}

// CallService owns the call session lifecycle. Ending is single-shot by
// construction: every path funnels into a guarded UPDATE, so concurrent
// leaves, force ends, and the sweeper cannot double-fire the teardown.
type CallService struct {
	pusher StreamPusher
	events *EventService
}

func NewCallService(pusher StreamPusher, events *EventService) *CallService {
	return &CallService{pusher: pusher, events: events}
}

func maxCallParticipants() int64 {
	if val := viper.GetInt64("calling.max_participants"); val > 0 {
		return val
	}
	return 16
}

// Start opens a call in a scope with the founder as its sole participant.
// One active call per scope; a second start conflicts instead of forking.
func (s *CallService) Start(scope Scope, founder models.Account) (models.CallSession, error) {
	if ongoing, err := GetOngoingCall(scope); err == nil {
		return ongoing, NewConflict("call #%d is already in progress in this scope", ongoing.ID)
	} else if _, ok := AsError(err); !ok {
		return models.CallSession{}, err
	}

	call := models.CallSession{
		Room:        uuid.NewString(),
		WorkspaceID: scope.WorkspaceID,
		ChannelID:   scope.ChannelID,
		ThreadID:    scope.ThreadID,
		FounderID:   founder.ID,
	}

	err := database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&call).Error; err != nil {
			return err
		}
		participant := models.CallParticipant{
			CallID:    call.ID,
			AccountID: founder.ID,
		}
		return tx.Save(&participant).Error
	})
	if err != nil {
		return call, err
	}

	s.pusher.PushRoom(scope.Room(), proto.Packet{
		Action:  proto.EventCallNew,
		Payload: call,
	})
	_, _ = s.events.New(scope, models.Event{
		Uuid: uuid.NewString(),
		Body: models.FitMap(models.EventCallBody{
			CallID:    call.ID,
			FounderID: founder.ID,
		}),
		Type:     models.EventCallStart,
		SenderID: founder.ID,
	})

	return call, nil
}

// Join opens a participant record. Joining a call twice hands back the open
// record instead of stacking a second one.
func (s *CallService) Join(call models.CallSession, account models.Account) (models.CallParticipant, error) {
	var participant models.CallParticipant
	if !call.IsOngoing() {
		return participant, NewNotFound("call #%d has already ended", call.ID)
	}

	if err := database.C.
		Where("call_id = ? AND account_id = ? AND left_at IS NULL", call.ID, account.ID).
		First(&participant).Error; err == nil {
		s.pushRoster(call, account.ID)
		return participant, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return participant, err
	}

	if count, err := CountOpenCallParticipant(call.ID); err != nil {
		return participant, err
	} else if count >= maxCallParticipants() {
		return participant, NewConflict("call #%d is full", call.ID)
	}

	participant = models.CallParticipant{
		CallID:    call.ID,
		AccountID: account.ID,
	}
	if err := database.C.Save(&participant).Error; err != nil {
		return participant, err
	}

	s.pusher.PushRoomExcept(gateway.CallRoom(call.ID), account.ID, proto.Packet{
		Action: proto.EventCallParticipantJoined,
		Payload: proto.CallParticipantUpdate{
			CallID:    call.ID,
			AccountID: account.ID,
			Nick:      account.Nick,
		},
	})
	s.pushRoster(call, account.ID)

	return participant, nil
}

// pushRoster hands the joiner the current roster directly. The joined
// broadcast above only reaches accounts already in the call room, so the
// snapshot is the joiner's acknowledgment and its view of who was there
// first; the founder gets theirs when the gateway join lands on the open
// record from Start.
func (s *CallService) pushRoster(call models.CallSession, accountId uint) {
	participants, err := ListCallParticipant(call.ID)
	if err != nil {
		log.Warn().Err(err).Uint("call", call.ID).Msg("Unable to snapshot the call roster...")
		return
	}

	s.pusher.PushUser(accountId, proto.Packet{
		Action: proto.EventCallRoster,
		Payload: proto.CallRoster{
			CallID: call.ID,
			Participants: lo.Map(participants, func(item models.CallParticipant, index int) proto.CallRosterEntry {
				return proto.CallRosterEntry{
					AccountID: item.AccountID,
					Nick:      item.Account.Nick,
				}
			}),
		},
	})
}

// Leave closes the account's open participation. The close is a guarded
// UPDATE: a second leave matches zero rows and stays completely silent, so
// rapid double leaves broadcast exactly one departure. The last leaver tears
// the call down through the same path as a force end.
func (s *CallService) Leave(call models.CallSession, account models.Account) error {
	res := database.C.Model(&models.CallParticipant{}).
		Where("call_id = ? AND account_id = ? AND left_at IS NULL", call.ID, account.ID).
		Update("left_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	s.pusher.PushRoom(gateway.CallRoom(call.ID), proto.Packet{
		Action: proto.EventCallParticipantLeft,
		Payload: proto.CallParticipantUpdate{
			CallID:    call.ID,
			AccountID: account.ID,
			Nick:      account.Nick,
		},
	})

	count, err := CountOpenCallParticipant(call.ID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.finish(call, account.ID)
	}
	return nil
}

// End force-ends the call; handler layers authorize the actor first.
func (s *CallService) End(call models.CallSession, actor models.Account) error {
	return s.finish(call, actor.ID)
}

// LeaveAll closes every open participation of an account, the disconnect
// counterpart of an explicit hangup per call.
func (s *CallService) LeaveAll(account models.Account) {
	var participants []models.CallParticipant
	if err := database.C.
		Where("account_id = ? AND left_at IS NULL", account.ID).
		Find(&participants).Error; err != nil {
		log.Error().Err(err).Uint("account", account.ID).Msg("Unable to list open call participations...")
		return
	}

	for _, participant := range participants {
		call, err := GetCall(participant.CallID)
		if err != nil {
			continue
		}
		if err := s.Leave(call, account); err != nil {
			log.Error().Err(err).Uint("call", call.ID).Msg("Unable to close call participation on disconnect...")
		}
	}
}

func (s *CallService) finish(call models.CallSession, actorId uint) error {
	moment := time.Now()
	res := database.C.Model(&models.CallSession{}).
		Where("id = ? AND ended_at IS NULL", call.ID).
		Update("ended_at", moment)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	var stragglers []models.CallParticipant
	database.C.Where("call_id = ? AND left_at IS NULL", call.ID).Find(&stragglers)
	database.C.Model(&models.CallParticipant{}).
		Where("call_id = ? AND left_at IS NULL", call.ID).
		Update("left_at", moment)

	duration := moment.Sub(call.CreatedAt).Seconds()
	s.pusher.PushRoom(gateway.CallRoom(call.ID), proto.Packet{
		Action: proto.EventCallEnded,
		Payload: proto.CallEnded{
			CallID:   call.ID,
			Duration: duration,
		},
	})

	_, _ = s.events.New(CallScope(call), models.Event{
		Uuid: uuid.NewString(),
		Body: models.FitMap(models.EventCallBody{
			CallID:    call.ID,
			FounderID: call.FounderID,
			Duration:  duration,
			Participants: lo.Map(stragglers, func(item models.CallParticipant, index int) uint {
				return item.AccountID
			}),
		}),
		Type:     models.EventCallEnd,
		SenderID: actorId,
	})

	return nil
}

// SweepStaleCalls ends ongoing calls that lost their last participant
// without the leave path running, e.g. a crash between close and finish.
func (s *CallService) SweepStaleCalls() {
	var calls []models.CallSession
	if err := database.C.
		Where("ended_at IS NULL AND created_at < ?", time.Now().Add(-time.Minute)).
		Find(&calls).Error; err != nil {
		log.Error().Err(err).Msg("Unable to list ongoing calls for sweeping...")
		return
	}

	for _, call := range calls {
		count, err := CountOpenCallParticipant(call.ID)
		if err != nil || count > 0 {
			continue
		}
		if err := s.finish(call, call.FounderID); err != nil {
			log.Error().Err(err).Uint("call", call.ID).Msg("Unable to sweep stale call...")
		} else {
			log.Debug().Uint("call", call.ID).Msg("Swept a stale call with no participants left.")
		}
	}
}
