package db

import "time"

// Menu 表示导航菜单节点，Path 为空时是纯容器节点。
type Menu struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Path      string    `gorm:"column:path;type:varchar(500);index" json:"path,omitempty"`
	Icon      string    `gorm:"column:icon;type:varchar(100)" json:"icon,omitempty"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	Hidden    bool      `gorm:"column:hidden;not null;default:false" json:"hidden"`
	ParentID  *uint     `gorm:"column:parent_id;index" json:"parent_id,omitempty"`
}

// TableName 指定表名。
func (Menu) TableName() string {
	return "menus"
}
