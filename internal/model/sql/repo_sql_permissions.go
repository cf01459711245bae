package sql

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"backoffice/internal/entity/db"
)

// CreatePermission persists a new permission.
func (r *GormRepository) CreatePermission(ctx context.Context, permission *db.Permission) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if permission == nil {
		return fmt.Errorf("permission is nil")
	}
	return r.db.WithContext(ctx).Create(permission).Error
}

// UpdatePermission updates the descriptive fields of a permission.
func (r *GormRepository) UpdatePermission(ctx context.Context, id uint, updates db.PermissionUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid permission id")
	}
	values := updates.ToMap()
	if len(values) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&db.Permission{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeletePermission removes a permission. Deletion is blocked while any role
// or menu still references it.
func (r *GormRepository) DeletePermission(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid permission id")
	}

	var roleRefs int64
	if err := r.db.WithContext(ctx).Model(&db.RolePermission{}).Where("permission_id = ?", id).Count(&roleRefs).Error; err != nil {
		return err
	}
	var menuRefs int64
	if err := r.db.WithContext(ctx).Model(&db.MenuPermission{}).Where("permission_id = ?", id).Count(&menuRefs).Error; err != nil {
		return err
	}
	if roleRefs > 0 || menuRefs > 0 {
		return ErrReferenced
	}

	result := r.db.WithContext(ctx).Delete(&db.Permission{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetPermissionByID loads a permission by ID.
func (r *GormRepository) GetPermissionByID(ctx context.Context, id uint) (*db.Permission, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid permission id")
	}
	var permission db.Permission
	if err := r.db.WithContext(ctx).First(&permission, id).Error; err != nil {
		return nil, err
	}
	return &permission, nil
}

// GetPermissionByCode loads a permission by its unique code.
func (r *GormRepository) GetPermissionByCode(ctx context.Context, code string) (*db.Permission, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, fmt.Errorf("permission code is empty")
	}
	var permission db.Permission
	if err := r.db.WithContext(ctx).Where("code = ?", trimmed).First(&permission).Error; err != nil {
		return nil, err
	}
	return &permission, nil
}

// ListPermissions returns all permissions.
func (r *GormRepository) ListPermissions(ctx context.Context) ([]db.Permission, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var permissions []db.Permission
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

// FindPermissionsByRoleIDs loads the permissions directly assigned to the
// given roles, in role order.
func (r *GormRepository) FindPermissionsByRoleIDs(ctx context.Context, roleIDs []uint) ([]db.Permission, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if len(roleIDs) == 0 {
		return []db.Permission{}, nil
	}
	var permissions []db.Permission
	err := r.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id IN ?", roleIDs).
		Order("permissions.id ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

// FindPermissionsByMenuID loads the permissions directly associated with a menu.
func (r *GormRepository) FindPermissionsByMenuID(ctx context.Context, menuID uint) ([]db.Permission, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var permissions []db.Permission
	err := r.db.WithContext(ctx).
		Joins("JOIN menu_permissions ON menu_permissions.permission_id = permissions.id").
		Where("menu_permissions.menu_id = ?", menuID).
		Order("permissions.id ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}
