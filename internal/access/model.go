package access

// Menu is one navigable entry of a module. Entries are identified by the
// (controller, view) pair within a tree.
type Menu struct {
	MenuID        int64  `json:"menuId"`
	Description   string `json:"description"`
	Controller    string `json:"controller"`
	View          string `json:"view"`
	NameComponent string `json:"nameComponent,omitempty"`
	IsStart       bool   `json:"isStart"`
	IsVisible     bool   `json:"isVisible"`
	ModuleID      int64  `json:"moduleId,omitempty"`
}

// Path is the route string a menu entry grants access to.
func (m Menu) Path() string {
	return m.Controller + "/" + m.View
}

// Module groups the menus of one application module, as served by
// GetAccessibleModulesAndMenus for an (applicationId, userId) pair.
type Module struct {
	ModuleID    int64  `json:"moduleId"`
	Description string `json:"moduleDescription"`
	Icon        string `json:"icon"`
	Menus       []Menu `json:"menus"`
}
