package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/samber/lo"
	"gorm.io/gorm"

	localCache "github.com/banterhq/banter/pkg/internal/cache"
	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
)

type channelIdentityCacheEntry struct {
	Channel models.Channel
	Member  *models.ChannelMember
}

func GetChannelIdentityCacheKey(channelId uint, user uint) string {
	return fmt.Sprintf("channel-identity-%d#%d", channelId, user)
}

func CacheChannelIdentity(channel models.Channel, member *models.ChannelMember, user uint) {
	if localCache.S == nil {
		return
	}
	key := GetChannelIdentityCacheKey(channel.ID, user)

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	_ = marshal.Set(
		contx,
		key,
		channelIdentityCacheEntry{channel, member},
		store.WithTags([]string{"channel-identity", fmt.Sprintf("channel#%d", channel.ID), fmt.Sprintf("user#%d", user)}),
	)
}

func GetCachedChannelIdentity(channelId uint, user uint) (models.Channel, *models.ChannelMember, bool) {
	if localCache.S == nil {
		return models.Channel{}, nil, false
	}
	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	if val, err := marshal.Get(contx, GetChannelIdentityCacheKey(channelId, user), new(channelIdentityCacheEntry)); err == nil {
		entry := val.(*channelIdentityCacheEntry)
		return entry.Channel, entry.Member, true
	}
	return models.Channel{}, nil, false
}

func InvalidateChannelIdentity(channelId uint) {
	if localCache.S == nil {
		return
	}
	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	_ = marshal.Invalidate(
		contx,
		store.WithInvalidateTags([]string{fmt.Sprintf("channel#%d", channelId)}),
	)
}

func GetChannelAliasAvailability(workspaceId uint, alias string) error {
	if !regexp.MustCompile("^[a-z0-9-]+$").MatchString(alias) {
		return NewValidation("channel alias should only contain lowercase letters, numbers, and hyphens")
	}
	var channel models.Channel
	if err := database.C.Where(models.Channel{Alias: alias, WorkspaceID: workspaceId}).
		First(&channel).Error; err == nil {
		return NewConflict("channel alias is already taken in this workspace")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func GetChannel(id uint) (models.Channel, error) {
	var channel models.Channel
	if err := database.C.Where("id = ?", id).Preload("Workspace").First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return channel, NewNotFound("channel #%d was not found", id)
		}
		return channel, err
	}
	return channel, nil
}

func GetChannelWithAlias(workspaceId uint, alias string) (models.Channel, error) {
	var channel models.Channel
	if err := database.C.Where(models.Channel{Alias: alias, WorkspaceID: workspaceId}).
		Preload("Workspace").
		First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return channel, NewNotFound("channel %s was not found", alias)
		}
		return channel, err
	}
	return channel, nil
}

func ListWorkspaceChannel(user models.Account, workspaceId uint) ([]models.Channel, error) {
	var members []models.ChannelMember
	if err := database.C.Where(&models.ChannelMember{
		AccountID: user.ID,
	}).Find(&members).Error; err != nil {
		return nil, err
	}

	idx := lo.Map(members, func(item models.ChannelMember, index int) uint {
		return item.ChannelID
	})

	var channels []models.Channel
	if err := database.C.
		Where("workspace_id = ?", workspaceId).
		Where("id IN ? OR is_public = true", idx).
		Find(&channels).Error; err != nil {
		return channels, err
	}
	return channels, nil
}

func ListOwnedChannel(user models.Account, workspaceId uint) ([]models.Channel, error) {
	var channels []models.Channel
	if err := database.C.
		Where(&models.Channel{AccountID: user.ID, WorkspaceID: workspaceId}).
		Find(&channels).Error; err != nil {
		return channels, err
	}
	return channels, nil
}

// NewChannel creates the channel and its founder membership in one
// transaction.
func NewChannel(channel models.Channel) (models.Channel, error) {
	if err := GetChannelAliasAvailability(channel.WorkspaceID, channel.Alias); err != nil {
		return channel, err
	}

	err := database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&channel).Error; err != nil {
			return err
		}
		member := models.ChannelMember{
			ChannelID:  channel.ID,
			AccountID:  channel.AccountID,
			PowerLevel: 100,
		}
		return tx.Save(&member).Error
	})

	return channel, err
}

func EditChannel(channel models.Channel, alias, name, description string, isPublic bool) (models.Channel, error) {
	channel.Alias = alias
	channel.Name = name
	channel.Description = description
	channel.IsPublic = isPublic

	err := database.C.Save(&channel).Error

	if err == nil {
		InvalidateChannelIdentity(channel.ID)
	}

	return channel, err
}

func DeleteChannel(channel models.Channel) error {
	if err := database.C.Delete(&channel).Error; err == nil {
		database.C.Where("channel_id = ?", channel.ID).Delete(&models.Event{})

		InvalidateChannelIdentity(channel.ID)

		return nil
	} else {
		return err
	}
}
