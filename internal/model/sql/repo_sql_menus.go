package sql

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
)

// CreateMenu persists a new menu node.
func (r *GormRepository) CreateMenu(ctx context.Context, menu *db.Menu) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if menu == nil {
		return fmt.Errorf("menu is nil")
	}
	return r.db.WithContext(ctx).Create(menu).Error
}

// UpdateMenu updates a menu node.
func (r *GormRepository) UpdateMenu(ctx context.Context, id uint, updates db.MenuUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid menu id")
	}
	values := updates.ToMap()
	if len(values) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&db.Menu{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteMenu removes a menu and its relation rows. Deletion is blocked while
// child menus exist.
func (r *GormRepository) DeleteMenu(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid menu id")
	}

	var children int64
	if err := r.db.WithContext(ctx).Model(&db.Menu{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
		return err
	}
	if children > 0 {
		return ErrReferenced
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_id = ?", id).Delete(&db.MenuPermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_id = ?", id).Delete(&db.RoleMenu{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&db.Menu{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// GetMenuByID loads a menu by ID.
func (r *GormRepository) GetMenuByID(ctx context.Context, id uint) (*db.Menu, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid menu id")
	}
	var menu db.Menu
	if err := r.db.WithContext(ctx).First(&menu, id).Error; err != nil {
		return nil, err
	}
	return &menu, nil
}

// GetMenuByPath loads a menu by its navigational path.
func (r *GormRepository) GetMenuByPath(ctx context.Context, path string) (*db.Menu, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var menu db.Menu
	if err := r.db.WithContext(ctx).Where("path = ?", trimmed).First(&menu).Error; err != nil {
		return nil, err
	}
	return &menu, nil
}

// ListMenus returns all menus ordered for tree assembly.
func (r *GormRepository) ListMenus(ctx context.Context) ([]db.Menu, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var menus []db.Menu
	if err := r.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&menus).Error; err != nil {
		return nil, err
	}
	return menus, nil
}

// FindMenusByRoleIDs loads the distinct menus visible to the given roles.
func (r *GormRepository) FindMenusByRoleIDs(ctx context.Context, roleIDs []uint) ([]db.Menu, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if len(roleIDs) == 0 {
		return []db.Menu{}, nil
	}
	var menus []db.Menu
	err := r.db.WithContext(ctx).
		Distinct("menus.*").
		Joins("JOIN role_menus ON role_menus.menu_id = menus.id").
		Where("role_menus.role_id IN ?", roleIDs).
		Order("menus.sort_order ASC, menus.id ASC").
		Find(&menus).Error
	if err != nil {
		return nil, err
	}
	return menus, nil
}

// FindMenuPermissionBindings loads a menu's per-action permission bindings
// with their resolved codes.
func (r *GormRepository) FindMenuPermissionBindings(ctx context.Context, menuID uint) ([]dto.MenuPermissionBinding, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var bindings []dto.MenuPermissionBinding
	err := r.db.WithContext(ctx).
		Model(&db.MenuPermission{}).
		Select("menu_permissions.action_type AS action_type, permissions.code AS code").
		Joins("JOIN permissions ON permissions.id = menu_permissions.permission_id").
		Where("menu_permissions.menu_id = ?", menuID).
		Order("menu_permissions.id ASC").
		Scan(&bindings).Error
	if err != nil {
		return nil, err
	}
	return bindings, nil
}

// SetMenuPermissions replaces a menu's permission bindings.
func (r *GormRepository) SetMenuPermissions(ctx context.Context, menuID uint, assignments []dto.MenuPermissionAssignment) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	ids := make([]uint, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.PermissionID)
	}
	if err := r.verifyIDsExist(ctx, &db.Permission{}, ids); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_id = ?", menuID).Delete(&db.MenuPermission{}).Error; err != nil {
			return err
		}
		for _, assignment := range assignments {
			link := db.MenuPermission{
				MenuID:       menuID,
				PermissionID: assignment.PermissionID,
				ActionType:   assignment.ActionType,
			}
			// 同一 (menu_id, permission_id) 冲突时更新操作类型，批次内后者覆盖前者。
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "menu_id"}, {Name: "permission_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"action_type"}),
			}).Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
