package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/proto"
)

// PresenceService tracks who is online and who is typing where. Both facts
// live in redis under keys with a native TTL, so a client that dies without
// saying goodbye fades out on its own; there is no sweeper goroutine.
type PresenceService struct {
	rd     *redis.Client
	pusher StreamPusher
}

func NewPresenceService(rd *redis.Client, pusher StreamPusher) *PresenceService {
	return &PresenceService{rd: rd, pusher: pusher}
}

func presenceKey(accountId uint) string {
	return fmt.Sprintf("presence:online:%d", accountId)
}

func typingKey(room string, accountId uint) string {
	return fmt.Sprintf("typing:%s:%d", room, accountId)
}

func onlineTTL() time.Duration {
	if val := viper.GetDuration("presence.online_ttl"); val > 0 {
		return val
	}
	return 5 * time.Minute
}

func typingTTL() time.Duration {
	if val := viper.GetDuration("presence.typing_ttl"); val > 0 {
		return val
	}
	return 5 * time.Second
}

// SetOnline marks the account online and broadcasts the transition. Only the
// first connection of an account broadcasts; further connections land on the
// already-set key and stay silent.
func (s *PresenceService) SetOnline(account models.Account) error {
	fresh, err := s.rd.SetNX(context.Background(), presenceKey(account.ID), proto.PresenceOnline, onlineTTL()).Result()
	if err != nil {
		return fmt.Errorf("unable to record presence: %v", err)
	}
	if fresh {
		s.pusher.Broadcast(proto.Packet{
			Action: proto.EventPresenceUpdate,
			Payload: proto.PresenceUpdate{
				AccountID: account.ID,
				Status:    proto.PresenceOnline,
			},
		})
	}
	return nil
}

// Heartbeat refreshes the online TTL without broadcasting anything.
func (s *PresenceService) Heartbeat(accountId uint) {
	if err := s.rd.Expire(context.Background(), presenceKey(accountId), onlineTTL()).Err(); err != nil {
		log.Warn().Err(err).Uint("account", accountId).Msg("Unable to refresh presence heartbeat...")
	}
}

// SetOffline is called when the last connection of an account goes away. It
// persists the last-seen moment so profiles can show it while offline.
func (s *PresenceService) SetOffline(account models.Account) error {
	if err := s.rd.Del(context.Background(), presenceKey(account.ID)).Err(); err != nil {
		return fmt.Errorf("unable to clear presence: %v", err)
	}

	moment := time.Now()
	if err := SetAccountLastSeen(account.ID, moment); err != nil {
		log.Warn().Err(err).Uint("account", account.ID).Msg("Unable to persist last seen moment...")
	}

	s.pusher.Broadcast(proto.Packet{
		Action: proto.EventPresenceUpdate,
		Payload: proto.PresenceUpdate{
			AccountID:  account.ID,
			Status:     proto.PresenceOffline,
			LastSeenAt: &moment,
		},
	})
	return nil
}

func (s *PresenceService) IsOnline(accountId uint) (bool, error) {
	count, err := s.rd.Exists(context.Background(), presenceKey(accountId)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetTyping raises the typing flag for the account in a room. A fresh flag
// broadcasts typing.start to everyone else in the room; repeats inside the
// debounce window only refresh the TTL. The TTL is the safety net for
// clients that never send the stop.
func (s *PresenceService) SetTyping(room string, account models.Account, update proto.TypingUpdate) error {
	key := typingKey(room, account.ID)
	fresh, err := s.rd.SetNX(context.Background(), key, account.Nick, typingTTL()).Result()
	if err != nil {
		return fmt.Errorf("unable to record typing flag: %v", err)
	}
	if !fresh {
		s.rd.Expire(context.Background(), key, typingTTL())
		return nil
	}

	update.AccountID = account.ID
	update.Nick = account.Nick
	s.pusher.PushRoomExcept(room, account.ID, proto.Packet{
		Action:  proto.ActionTypingStart,
		Payload: update,
	})
	return nil
}

// ClearTyping drops the flag early. Broadcasts only when the flag was still
// up, so a stop racing its own expiry stays silent.
func (s *PresenceService) ClearTyping(room string, account models.Account, update proto.TypingUpdate) error {
	removed, err := s.rd.Del(context.Background(), typingKey(room, account.ID)).Result()
	if err != nil {
		return fmt.Errorf("unable to clear typing flag: %v", err)
	}
	if removed == 0 {
		return nil
	}

	update.AccountID = account.ID
	update.Nick = account.Nick
	s.pusher.PushRoomExcept(room, account.ID, proto.Packet{
		Action:  proto.ActionTypingStop,
		Payload: update,
	})
	return nil
}
