package services

import "github.com/banterhq/banter/pkg/proto"

// StreamPusher is the slice of the gateway the services need for emitting.
// Declared on the consuming side so service tests can hand in a fake instead
// of a live socket registry.
type StreamPusher interface {
	PushUser(accountId uint, pkt proto.Packet)
	PushUserBatch(accountIds []uint, pkt proto.Packet)
	PushRoom(room string, pkt proto.Packet)
	PushRoomExcept(room string, exceptAccountId uint, pkt proto.Packet)
	Broadcast(pkt proto.Packet)
	RoomAccounts(room string) []uint
	IsOnline(accountId uint) bool
}
