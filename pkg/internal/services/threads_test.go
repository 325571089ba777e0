package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
)

func TestNewCoupleThreadIsDeduplicated(t *testing.T) {
	useTestDB(t)
	fx := seedFixture(t)

	// the fixture already holds the alice/bob couple thread
	thread, err := NewThread(fx.workspace, fx.alice, []models.Account{fx.bob})
	require.NoError(t, err)
	assert.Equal(t, fx.thread.ID, thread.ID, "asking again returns the existing thread")

	// order of the pair does not matter either
	thread, err = NewThread(fx.workspace, fx.bob, []models.Account{fx.alice})
	require.NoError(t, err)
	assert.Equal(t, fx.thread.ID, thread.ID)
}

func TestNewThreadValidation(t *testing.T) {
	useTestDB(t)
	fx := seedFixture(t)

	_, err := NewThread(fx.workspace, fx.alice, nil)
	requireCode(t, err, ErrCodeValidation)

	// carol is outside the workspace
	_, err = NewThread(fx.workspace, fx.alice, []models.Account{fx.carol})
	requireCode(t, err, ErrCodeNotMember)
}

func TestGroupThreadMembership(t *testing.T) {
	useTestDB(t)
	fx := seedFixture(t)

	dave := models.Account{Name: "dave", Nick: "Dave"}
	require.NoError(t, database.C.Create(&dave).Error)
	require.NoError(t, database.C.Create(&models.WorkspaceMember{
		WorkspaceID: fx.workspace.ID, AccountID: dave.ID,
	}).Error)

	group, err := NewThread(fx.workspace, fx.alice, []models.Account{fx.bob, dave})
	require.NoError(t, err)
	assert.Equal(t, models.ThreadKindGroup, group.Kind)
	assert.Len(t, group.Participants, 3)

	participant, err := GetThreadParticipant(dave, group.ID)
	require.NoError(t, err)
	require.NoError(t, RemoveThreadParticipant(participant, group))

	reloaded, err := GetThread(group.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Participants, 2, "departed participants drop off the roster")

	// couple threads are permanent for both sides
	coupleParticipant, err := GetThreadParticipant(fx.alice, fx.thread.ID)
	require.NoError(t, err)
	requireCode(t, RemoveThreadParticipant(coupleParticipant, fx.thread), ErrCodeValidation)
	requireCode(t, AddThreadParticipant(dave, fx.thread), ErrCodeValidation)
}
