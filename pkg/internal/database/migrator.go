package database

import (
	"github.com/banterhq/banter/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Account{},
	&models.Workspace{},
	&models.WorkspaceMember{},
	&models.Channel{},
	&models.ChannelMember{},
	&models.DirectThread{},
	&models.ThreadParticipant{},
	&models.CallSession{},
	&models.CallParticipant{},
	&models.Event{},
	&models.KeyBundle{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
