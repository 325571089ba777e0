package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/proto"
)

func useTestDB(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigration(db))
	database.C = db
}

type pushRecord struct {
	Kind       string
	Room       string
	AccountID  uint
	AccountIDs []uint
	Except     uint
	Packet     proto.Packet
}

// fakePusher records every emit so tests can assert on exact fan-out.
type fakePusher struct {
	pushes []pushRecord
}

func (f *fakePusher) PushUser(accountId uint, pkt proto.Packet) {
	f.pushes = append(f.pushes, pushRecord{Kind: "user", AccountID: accountId, Packet: pkt})
}

func (f *fakePusher) PushUserBatch(accountIds []uint, pkt proto.Packet) {
	f.pushes = append(f.pushes, pushRecord{Kind: "batch", AccountIDs: accountIds, Packet: pkt})
}

func (f *fakePusher) PushRoom(room string, pkt proto.Packet) {
	f.pushes = append(f.pushes, pushRecord{Kind: "room", Room: room, Packet: pkt})
}

func (f *fakePusher) PushRoomExcept(room string, exceptAccountId uint, pkt proto.Packet) {
	f.pushes = append(f.pushes, pushRecord{Kind: "room_except", Room: room, Except: exceptAccountId, Packet: pkt})
}

func (f *fakePusher) Broadcast(pkt proto.Packet) {
	f.pushes = append(f.pushes, pushRecord{Kind: "broadcast", Packet: pkt})
}

func (f *fakePusher) RoomAccounts(room string) []uint { return nil }
func (f *fakePusher) IsOnline(accountId uint) bool    { return false }

func (f *fakePusher) byAction(action string) []pushRecord {
	var out []pushRecord
	for _, record := range f.pushes {
		if record.Packet.Action == action {
			out = append(out, record)
		}
	}
	return out
}

func (f *fakePusher) reset() {
	f.pushes = nil
}

// fixture is one seeded workspace: alice owns it, bob is a plain member,
// carol stays outside. The public channel holds alice and bob, the private
// one only alice, and the thread pairs alice with bob.
type fixture struct {
	alice, bob, carol models.Account

	workspace models.Workspace
	channel   models.Channel
	private   models.Channel
	thread    models.DirectThread
}

func seedFixture(t *testing.T) fixture {
	t.Helper()

	var fx fixture
	fx.alice = models.Account{Name: "alice", Nick: "Alice"}
	fx.bob = models.Account{Name: "bob", Nick: "Bob"}
	fx.carol = models.Account{Name: "carol", Nick: "Carol"}
	require.NoError(t, database.C.Create(&fx.alice).Error)
	require.NoError(t, database.C.Create(&fx.bob).Error)
	require.NoError(t, database.C.Create(&fx.carol).Error)

	fx.workspace = models.Workspace{Alias: "acme", Name: "Acme", AccountID: fx.alice.ID}
	require.NoError(t, database.C.Create(&fx.workspace).Error)
	require.NoError(t, database.C.Create(&models.WorkspaceMember{
		WorkspaceID: fx.workspace.ID, AccountID: fx.alice.ID, PowerLevel: 100,
	}).Error)
	require.NoError(t, database.C.Create(&models.WorkspaceMember{
		WorkspaceID: fx.workspace.ID, AccountID: fx.bob.ID,
	}).Error)

	fx.channel = models.Channel{
		Alias: "general", Name: "General", IsPublic: true,
		WorkspaceID: fx.workspace.ID, AccountID: fx.alice.ID,
	}
	require.NoError(t, database.C.Create(&fx.channel).Error)
	require.NoError(t, database.C.Create(&models.ChannelMember{
		ChannelID: fx.channel.ID, AccountID: fx.alice.ID, PowerLevel: 100,
	}).Error)
	require.NoError(t, database.C.Create(&models.ChannelMember{
		ChannelID: fx.channel.ID, AccountID: fx.bob.ID,
	}).Error)

	fx.private = models.Channel{
		Alias: "staff", Name: "Staff", IsPublic: false,
		WorkspaceID: fx.workspace.ID, AccountID: fx.alice.ID,
	}
	require.NoError(t, database.C.Create(&fx.private).Error)
	require.NoError(t, database.C.Create(&models.ChannelMember{
		ChannelID: fx.private.ID, AccountID: fx.alice.ID, PowerLevel: 100,
	}).Error)

	fx.thread = models.DirectThread{
		Kind: models.ThreadKindCouple, WorkspaceID: fx.workspace.ID, AccountID: fx.alice.ID,
	}
	require.NoError(t, database.C.Create(&fx.thread).Error)
	require.NoError(t, database.C.Create(&models.ThreadParticipant{
		ThreadID: fx.thread.ID, AccountID: fx.alice.ID,
	}).Error)
	require.NoError(t, database.C.Create(&models.ThreadParticipant{
		ThreadID: fx.thread.ID, AccountID: fx.bob.ID,
	}).Error)

	return fx
}

func (fx fixture) channelScope() Scope {
	return Scope{WorkspaceID: fx.workspace.ID, ChannelID: &fx.channel.ID, Channel: &fx.channel}
}

func (fx fixture) threadScope() Scope {
	return Scope{WorkspaceID: fx.workspace.ID, ThreadID: &fx.thread.ID, Thread: &fx.thread}
}
