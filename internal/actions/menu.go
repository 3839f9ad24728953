package actions

import "fmt"

// MenuItem is one invocable entry of an action menu.
type MenuItem struct {
	Label     string
	Actioner  Actioner
	Selection Selection
}

// Invoke performs the item's action. Failures are routed to the context's
// notifier; a menu invocation never takes the application down.
func (i MenuItem) Invoke(actx Context) {
	if err := i.Actioner.Do(i.Label, i.Selection, actx); err != nil {
		actx.Notifier().Error(fmt.Sprintf("%s: %v", i.Label, err))
	}
}

// MenuSection groups the actions offered for one selection.
type MenuSection struct {
	Label string
	Items []MenuItem
}

// Menu is an ordered set of sections.
type Menu struct {
	Sections []MenuSection
}

// Empty reports whether the menu has nothing to show.
func (m Menu) Empty() bool { return len(m.Sections) == 0 }

// Group names one selection offered to the menu builder.
type Group struct {
	Label     string
	Selection Selection
}

// BuildMenu probes the registry once per group, keeping only groups for
// which at least one action was offered. Group order is preserved.
func BuildMenu(reg *Registry, groups []Group, actx Context) Menu {
	var menu Menu
	for _, g := range groups {
		offered := reg.ProbeAll(g.Selection, actx)
		if len(offered) == 0 {
			continue
		}
		section := MenuSection{Label: g.Label}
		for _, a := range offered {
			section.Items = append(section.Items, MenuItem{
				Label:     a.Name,
				Actioner:  a.Actioner,
				Selection: g.Selection,
			})
		}
		menu.Sections = append(menu.Sections, section)
	}
	return menu
}
