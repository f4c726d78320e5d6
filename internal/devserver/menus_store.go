package devserver

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"taskconsole/internal/access"
)

// MenuStore resolves the permission tree for an (applicationId, userId)
// pair from the modules/menus/menu_grants tables.
type MenuStore interface {
	AccessibleModulesAndMenus(ctx context.Context, applicationID, userID int64) ([]access.Module, error)
}

const accessibleMenusQuery = `
				SELECT mo.id, mo.description, mo.icon,
				       me.id, me.description, me.controller, me.view,
				       me.name_component, me.is_start, me.is_visible
				FROM modules mo
				JOIN menus me ON me.module_id = mo.id
				JOIN menu_grants g ON g.menu_id = me.id
				WHERE mo.application_id = $1 AND g.user_id = $2
				ORDER BY mo.id, me.id
				`

type menuStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewMenuStore(db *sql.DB, logger *zap.Logger) MenuStore {
	return &menuStore{db: db, logger: logger}
}

func (s *menuStore) AccessibleModulesAndMenus(ctx context.Context, applicationID, userID int64) ([]access.Module, error) {
	rows, err := s.db.QueryContext(ctx, accessibleMenusQuery, applicationID, userID)
	if err != nil {
		s.logger.Error("failed to query accessible menus",
			zap.Int64("applicationId", applicationID),
			zap.Int64("userId", userID),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	tree := []access.Module{}
	for rows.Next() {
		var module access.Module
		var menu access.Menu
		if err := rows.Scan(
			&module.ModuleID,
			&module.Description,
			&module.Icon,
			&menu.MenuID,
			&menu.Description,
			&menu.Controller,
			&menu.View,
			&menu.NameComponent,
			&menu.IsStart,
			&menu.IsVisible,
		); err != nil {
			return nil, err
		}
		menu.ModuleID = module.ModuleID

		// Rows arrive ordered by module; append menus to the current one.
		if n := len(tree); n > 0 && tree[n-1].ModuleID == module.ModuleID {
			tree[n-1].Menus = append(tree[n-1].Menus, menu)
			continue
		}
		module.Menus = []access.Menu{menu}
		tree = append(tree, module)
	}
	return tree, rows.Err()
}
