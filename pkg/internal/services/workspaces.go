package services

import (
	"errors"
	"regexp"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
)

func GetWorkspaceAliasAvailability(alias string) error {
	if !regexp.MustCompile("^[a-z0-9-]+$").MatchString(alias) {
		return NewValidation("workspace alias should only contain lowercase letters, numbers, and hyphens")
	}
	var workspace models.Workspace
	if err := database.C.Where(models.Workspace{Alias: alias}).First(&workspace).Error; err == nil {
		return NewConflict("workspace alias is already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func GetWorkspace(id uint) (models.Workspace, error) {
	var workspace models.Workspace
	if err := database.C.Where("id = ?", id).First(&workspace).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return workspace, NewNotFound("workspace #%d was not found", id)
		}
		return workspace, err
	}
	return workspace, nil
}

func GetWorkspaceWithAlias(alias string) (models.Workspace, error) {
	var workspace models.Workspace
	if err := database.C.Where(models.Workspace{Alias: alias}).First(&workspace).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return workspace, NewNotFound("workspace %s was not found", alias)
		}
		return workspace, err
	}
	return workspace, nil
}

func GetWorkspaceMember(accountId uint, workspaceId uint) (models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	if err := database.C.
		Where(&models.WorkspaceMember{AccountID: accountId, WorkspaceID: workspaceId}).
		First(&member).Error; err != nil {
		return member, err
	}
	return member, nil
}

func CountWorkspaceMember(workspaceId uint) (int64, error) {
	var count int64
	if err := database.C.Where(&models.WorkspaceMember{
		WorkspaceID: workspaceId,
	}).Model(&models.WorkspaceMember{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func ListWorkspaceMember(workspaceId uint, take int, offset int) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	if err := database.C.
		Limit(take).Offset(offset).
		Where(&models.WorkspaceMember{WorkspaceID: workspaceId}).
		Preload("Account").
		Find(&members).Error; err != nil {
		return members, err
	}
	return members, nil
}

func ListAvailableWorkspace(user models.Account) ([]models.Workspace, error) {
	var members []models.WorkspaceMember
	if err := database.C.Where(&models.WorkspaceMember{
		AccountID: user.ID,
	}).Find(&members).Error; err != nil {
		return nil, err
	}

	idx := lo.Map(members, func(item models.WorkspaceMember, index int) uint {
		return item.WorkspaceID
	})

	var workspaces []models.Workspace
	if err := database.C.Where("id IN ?", idx).Find(&workspaces).Error; err != nil {
		return workspaces, err
	}
	return workspaces, nil
}

// NewWorkspace creates the workspace and enrolls the founder as its first
// member in one transaction.
func NewWorkspace(workspace models.Workspace) (models.Workspace, error) {
	if err := GetWorkspaceAliasAvailability(workspace.Alias); err != nil {
		return workspace, err
	}

	err := database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&workspace).Error; err != nil {
			return err
		}
		member := models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			AccountID:   workspace.AccountID,
			PowerLevel:  100,
		}
		return tx.Save(&member).Error
	})

	return workspace, err
}

func EditWorkspace(workspace models.Workspace, name, description string, isPublic bool) (models.Workspace, error) {
	workspace.Name = name
	workspace.Description = description
	workspace.IsPublic = isPublic

	err := database.C.Save(&workspace).Error
	return workspace, err
}

func DeleteWorkspace(workspace models.Workspace) error {
	return database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", workspace.ID).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&workspace).Error
	})
}

// AddWorkspaceMember is idempotent: enrolling an existing member is a no-op.
func AddWorkspaceMember(user models.Account, target models.Workspace) error {
	var member models.WorkspaceMember
	if err := database.C.Where(&models.WorkspaceMember{
		AccountID:   user.ID,
		WorkspaceID: target.ID,
	}).First(&member).Error; err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	member = models.WorkspaceMember{
		WorkspaceID: target.ID,
		AccountID:   user.ID,
	}

	return database.C.Save(&member).Error
}

func RemoveWorkspaceMember(member models.WorkspaceMember, target models.Workspace) error {
	if member.PowerLevel >= 100 {
		return NewForbidden("the workspace owner cannot be removed")
	}
	return database.C.Delete(&member).Error
}
