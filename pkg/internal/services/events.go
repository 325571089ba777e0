package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/proto"
)

func scopedEvents(scope Scope) *gorm.DB {
	if scope.ChannelID != nil {
		return database.C.Where("channel_id = ?", *scope.ChannelID)
	}
	return database.C.Where("thread_id = ?", *scope.ThreadID)
}

func CountEvent(scope Scope) int64 {
	var count int64
	if err := scopedEvents(scope).Model(&models.Event{}).Count(&count).Error; err != nil {
		return 0
	}
	return count
}

func ListEvent(scope Scope, take int, offset int) ([]models.Event, error) {
	if take > 100 {
		take = 100
	}

	var events []models.Event
	if err := scopedEvents(scope).
		Limit(take).Offset(offset).
		Order("created_at DESC").
		Preload("Sender").
		Find(&events).Error; err != nil {
		return events, err
	}
	return events, nil
}

func GetEvent(scope Scope, id uint) (models.Event, error) {
	var event models.Event
	if err := scopedEvents(scope).
		Where("id = ?", id).
		Preload("Sender").
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return event, NewNotFound("event #%d was not found", id)
		}
		return event, err
	}
	return event, nil
}

// GetEventWithSender only yields the event when the account authored it;
// edit and delete paths go through here.
func GetEventWithSender(scope Scope, sender models.Account, id uint) (models.Event, error) {
	var event models.Event
	if err := scopedEvents(scope).
		Where("id = ? AND sender_id = ?", id, sender.ID).
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return event, NewNotFound("event #%d was not found among your events", id)
		}
		return event, err
	}
	return event, nil
}

// EventService appends timeline records and fans them out. Delivery targets
// every member of the scope on their personal rooms, so members receive
// timeline updates on all their connections without subscribing first.
type EventService struct {
	pusher StreamPusher
}

func NewEventService(pusher StreamPusher) *EventService {
	return &EventService{pusher: pusher}
}

func (s *EventService) New(scope Scope, event models.Event) (models.Event, error) {
	if scope.ChannelID != nil {
		event.ChannelID = scope.ChannelID
	} else {
		event.ThreadID = scope.ThreadID
	}
	if err := database.C.Save(&event).Error; err != nil {
		return event, err
	}

	event, _ = GetEvent(scope, event.ID)

	targets, err := scope.MemberIDs()
	if err != nil {
		// The record landed; delivery degrades to fetch-on-demand.
		return event, nil
	}
	s.pusher.PushUserBatch(targets, proto.Packet{
		Action:  proto.EventNew,
		Payload: event,
	})

	return event, nil
}

func (s *EventService) Edit(scope Scope, event models.Event) (models.Event, error) {
	if err := database.C.Save(&event).Error; err != nil {
		return event, err
	}
	return event, nil
}

func (s *EventService) Delete(scope Scope, event models.Event) error {
	return database.C.Delete(&event).Error
}
