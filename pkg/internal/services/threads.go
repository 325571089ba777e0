package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
)

func GetThread(id uint) (models.DirectThread, error) {
	var thread models.DirectThread
	if err := database.C.Where("id = ?", id).
		Preload("Participants", "departed_at IS NULL").
		Preload("Participants.Account").
		First(&thread).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread, NewNotFound("direct thread #%d was not found", id)
		}
		return thread, err
	}
	return thread, nil
}

func GetThreadParticipant(user models.Account, threadId uint) (models.ThreadParticipant, error) {
	var participant models.ThreadParticipant
	if err := database.C.
		Where("account_id = ? AND thread_id = ? AND departed_at IS NULL", user.ID, threadId).
		First(&participant).Error; err != nil {
		return participant, err
	}
	return participant, nil
}

// GetCoupleThread finds the existing two-person thread between both accounts
// inside a workspace, so couple DMs stay unique per pair.
func GetCoupleThread(workspaceId uint, user models.Account, other models.Account) (models.DirectThread, error) {
	prefix := viper.GetString("database.prefix")
	participantTable := prefix + "thread_participants"
	threadTable := prefix + "direct_threads"

	var thread models.DirectThread
	if err := database.C.
		Where("kind = ? AND workspace_id = ?", models.ThreadKindCouple, workspaceId).
		Joins(fmt.Sprintf("JOIN %s tp1 ON tp1.thread_id = %s.id AND tp1.account_id = ?", participantTable, threadTable), user.ID).
		Joins(fmt.Sprintf("JOIN %s tp2 ON tp2.thread_id = %s.id AND tp2.account_id = ?", participantTable, threadTable), other.ID).
		First(&thread).Error; err != nil {
		return thread, err
	}
	return thread, nil
}

func ListAvailableThread(user models.Account, workspaceId uint) ([]models.DirectThread, error) {
	var participations []models.ThreadParticipant
	if err := database.C.
		Where("account_id = ? AND departed_at IS NULL", user.ID).
		Find(&participations).Error; err != nil {
		return nil, err
	}

	idx := lo.Map(participations, func(item models.ThreadParticipant, index int) uint {
		return item.ThreadID
	})

	var threads []models.DirectThread
	if err := database.C.
		Where("workspace_id = ?", workspaceId).
		Where("id IN ?", idx).
		Preload("Participants", "departed_at IS NULL").
		Preload("Participants.Account").
		Find(&threads).Error; err != nil {
		return threads, err
	}
	return threads, nil
}

// NewThread opens a direct thread. Couple threads are deduplicated: asking
// for one that already exists returns the original.
func NewThread(workspace models.Workspace, founder models.Account, others []models.Account) (models.DirectThread, error) {
	kind := models.ThreadKindGroup
	if len(others) == 1 {
		kind = models.ThreadKindCouple
		if thread, err := GetCoupleThread(workspace.ID, founder, others[0]); err == nil {
			return GetThread(thread.ID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DirectThread{}, err
		}
	} else if len(others) == 0 {
		return models.DirectThread{}, NewValidation("a direct thread needs at least one other participant")
	}

	for _, other := range append(others, founder) {
		if _, err := RequireWorkspaceMember(other.ID, workspace.ID); err != nil {
			return models.DirectThread{}, err
		}
	}

	thread := models.DirectThread{
		Kind:        kind,
		WorkspaceID: workspace.ID,
		AccountID:   founder.ID,
	}

	err := database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&thread).Error; err != nil {
			return err
		}
		for _, account := range append([]models.Account{founder}, others...) {
			participant := models.ThreadParticipant{
				ThreadID:  thread.ID,
				AccountID: account.ID,
			}
			if err := tx.Save(&participant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return thread, err
	}

	return GetThread(thread.ID)
}

func AddThreadParticipant(user models.Account, thread models.DirectThread) error {
	if thread.Kind == models.ThreadKindCouple {
		return NewValidation("couple threads cannot take extra participants")
	}
	if _, err := RequireWorkspaceMember(user.ID, thread.WorkspaceID); err != nil {
		return err
	}

	var participant models.ThreadParticipant
	if err := database.C.
		Where("account_id = ? AND thread_id = ? AND departed_at IS NULL", user.ID, thread.ID).
		First(&participant).Error; err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	participant = models.ThreadParticipant{
		ThreadID:  thread.ID,
		AccountID: user.ID,
	}
	return database.C.Save(&participant).Error
}

// RemoveThreadParticipant marks the participant departed instead of deleting
// the row, keeping history attributable.
func RemoveThreadParticipant(participant models.ThreadParticipant, thread models.DirectThread) error {
	if thread.Kind == models.ThreadKindCouple {
		return NewValidation("couple threads cannot be left")
	}
	return database.C.Model(&models.ThreadParticipant{}).
		Where("id = ? AND departed_at IS NULL", participant.ID).
		Update("departed_at", time.Now()).Error
}
