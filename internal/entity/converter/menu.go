package converter

import (
	"sort"

	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
)

// MenusToTree assembles flat menu rows into a sorted tree. Rows whose parent is
// missing from the input are promoted to the top level so a partially visible
// menu set still renders.
func MenusToTree(menus []db.Menu) []dto.MenuNode {
	byID := make(map[uint]*db.Menu, len(menus))
	for i := range menus {
		byID[menus[i].ID] = &menus[i]
	}

	children := make(map[uint][]*db.Menu)
	var roots []*db.Menu
	for i := range menus {
		m := &menus[i]
		if m.ParentID != nil {
			if _, ok := byID[*m.ParentID]; ok {
				children[*m.ParentID] = append(children[*m.ParentID], m)
				continue
			}
		}
		roots = append(roots, m)
	}

	sortMenus := func(items []*db.Menu) {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].SortOrder != items[j].SortOrder {
				return items[i].SortOrder < items[j].SortOrder
			}
			return items[i].ID < items[j].ID
		})
	}

	var build func(m *db.Menu) dto.MenuNode
	build = func(m *db.Menu) dto.MenuNode {
		node := MenuToNode(m)
		kids := children[m.ID]
		sortMenus(kids)
		for _, kid := range kids {
			node.Children = append(node.Children, build(kid))
		}
		return node
	}

	sortMenus(roots)
	result := make([]dto.MenuNode, 0, len(roots))
	for _, root := range roots {
		result = append(result, build(root))
	}
	return result
}

// MenuToNode converts one menu row without children.
func MenuToNode(m *db.Menu) dto.MenuNode {
	if m == nil {
		return dto.MenuNode{}
	}
	return dto.MenuNode{
		ID:        m.ID,
		Name:      m.Name,
		Path:      m.Path,
		Icon:      m.Icon,
		SortOrder: m.SortOrder,
		Hidden:    m.Hidden,
		ParentID:  m.ParentID,
	}
}
