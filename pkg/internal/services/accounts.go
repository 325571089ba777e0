package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
)

func GetAccount(id uint) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, NewNotFound("account #%d was not found", id)
		}
		return account, err
	}
	return account, nil
}

func ListAccount(idRange []uint) ([]models.Account, error) {
	var accounts []models.Account
	if err := database.C.Where("id IN ?", idRange).Find(&accounts).Error; err != nil {
		return accounts, err
	}
	return accounts, nil
}

func SetAccountLastSeen(accountId uint, moment time.Time) error {
	return database.C.Model(&models.Account{}).
		Where("id = ?", accountId).
		Update("last_seen_at", moment).Error
}
