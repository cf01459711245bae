package sql

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"backoffice/internal/entity/db"
)

// CreateRole persists a new role.
func (r *GormRepository) CreateRole(ctx context.Context, role *db.Role) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if role == nil {
		return fmt.Errorf("role is nil")
	}
	return r.db.WithContext(ctx).Create(role).Error
}

// UpdateRole updates a role. System roles reject updates.
func (r *GormRepository) UpdateRole(ctx context.Context, id uint, updates db.RoleUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	role, err := r.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	values := updates.ToMap()
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&db.Role{}).Where("id = ?", id).Updates(values).Error
}

// DeleteRole removes a role and its relation rows. System roles and roles
// still assigned to users are protected.
func (r *GormRepository) DeleteRole(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	role, err := r.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}

	var links int64
	if err := r.db.WithContext(ctx).Model(&db.UserRole{}).Where("role_id = ?", id).Count(&links).Error; err != nil {
		return err
	}
	if links > 0 {
		return ErrReferenced
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&db.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&db.RoleMenu{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Role{}, id).Error
	})
}

// GetRoleByID loads a role by ID.
func (r *GormRepository) GetRoleByID(ctx context.Context, id uint) (*db.Role, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid role id")
	}
	var role db.Role
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// GetRoleByName loads a role by its unique name.
func (r *GormRepository) GetRoleByName(ctx context.Context, name string) (*db.Role, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("role name is empty")
	}
	var role db.Role
	if err := r.db.WithContext(ctx).Where("name = ?", trimmed).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// ListRoles returns all roles.
func (r *GormRepository) ListRoles(ctx context.Context) ([]db.Role, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var roles []db.Role
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// FindRolesByIDs loads roles matching the id set.
func (r *GormRepository) FindRolesByIDs(ctx context.Context, ids []uint) ([]db.Role, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if len(ids) == 0 {
		return []db.Role{}, nil
	}
	var roles []db.Role
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// FindRolesByUserID loads the roles assigned to a user.
func (r *GormRepository) FindRolesByUserID(ctx context.Context, userID uint) ([]db.Role, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var roles []db.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id ASC").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// AddUserRole assigns a role to a user. Re-adding an existing pair is a no-op,
// 并发写入同一组合时由唯一索引兜底，不向调用方暴露冲突。
func (r *GormRepository) AddUserRole(ctx context.Context, userID, roleID uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	link := db.UserRole{UserID: userID, RoleID: roleID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

// ReplaceUserRoles replaces a user's role set. Unknown role ids fail the
// whole batch before any write.
func (r *GormRepository) ReplaceUserRoles(ctx context.Context, userID uint, roleIDs []uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if err := r.verifyIDsExist(ctx, &db.Role{}, roleIDs); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&db.UserRole{}).Error; err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			link := db.UserRole{UserID: userID, RoleID: roleID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AddRolePermission grants one permission to a role. Idempotent.
func (r *GormRepository) AddRolePermission(ctx context.Context, roleID, permissionID uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	link := db.RolePermission{RoleID: roleID, PermissionID: permissionID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

// SetRolePermissions replaces a role's permission set.
func (r *GormRepository) SetRolePermissions(ctx context.Context, roleID uint, permissionIDs []uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if err := r.verifyIDsExist(ctx, &db.Permission{}, permissionIDs); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&db.RolePermission{}).Error; err != nil {
			return err
		}
		for _, permissionID := range permissionIDs {
			link := db.RolePermission{RoleID: roleID, PermissionID: permissionID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetRoleMenus replaces a role's menu set.
func (r *GormRepository) SetRoleMenus(ctx context.Context, roleID uint, menuIDs []uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if err := r.verifyIDsExist(ctx, &db.Menu{}, menuIDs); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&db.RoleMenu{}).Error; err != nil {
			return err
		}
		for _, menuID := range menuIDs {
			link := db.RoleMenu{RoleID: roleID, MenuID: menuID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// verifyIDsExist fails with ErrInvalidReference when any id in the batch does
// not exist for the given entity.
func (r *GormRepository) verifyIDsExist(ctx context.Context, entityModel interface{}, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	distinct := make([]uint, 0, len(unique))
	for id := range unique {
		distinct = append(distinct, id)
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(entityModel).Where("id IN ?", distinct).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(distinct)) {
		return ErrInvalidReference
	}
	return nil
}
