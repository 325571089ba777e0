package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
)

func CountChannelMember(channelId uint) (int64, error) {
	var count int64
	if err := database.C.Where(&models.ChannelMember{
		ChannelID: channelId,
	}).Model(&models.ChannelMember{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func ListChannelMember(channelId uint, take int, offset int) ([]models.ChannelMember, error) {
	var members []models.ChannelMember
	tx := database.C.Where(&models.ChannelMember{ChannelID: channelId}).Preload("Account")
	if take > 0 {
		tx = tx.Limit(take).Offset(offset)
	}
	if err := tx.Find(&members).Error; err != nil {
		return members, err
	}
	return members, nil
}

func GetChannelMember(user models.Account, channelId uint) (models.ChannelMember, error) {
	var member models.ChannelMember
	if err := database.C.
		Where(&models.ChannelMember{AccountID: user.ID, ChannelID: channelId}).
		First(&member).Error; err != nil {
		return member, err
	}
	return member, nil
}

// AddChannelMember is idempotent and requires the account to already be in
// the channel's workspace.
func AddChannelMember(user models.Account, target models.Channel) error {
	if _, err := RequireWorkspaceMember(user.ID, target.WorkspaceID); err != nil {
		return err
	}

	var member models.ChannelMember
	if err := database.C.Where(&models.ChannelMember{
		AccountID: user.ID,
		ChannelID: target.ID,
	}).First(&member).Error; err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	member = models.ChannelMember{
		ChannelID: target.ID,
		AccountID: user.ID,
	}

	err := database.C.Save(&member).Error

	if err == nil {
		InvalidateChannelIdentity(target.ID)
	}

	return err
}

func EditChannelMember(membership models.ChannelMember) (models.ChannelMember, error) {
	if err := database.C.Save(&membership).Error; err != nil {
		return membership, err
	}

	InvalidateChannelIdentity(membership.ChannelID)

	return membership, nil
}

func RemoveChannelMember(member models.ChannelMember, target models.Channel) error {
	if err := database.C.Delete(&member).Error; err == nil {
		InvalidateChannelIdentity(target.ID)

		return nil
	} else {
		return err
	}
}
