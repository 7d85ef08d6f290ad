package routes

import (
	"sort"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
)

// Action is the static metadata of a model action.
type Action struct {
	Name           string `json:"name"`
	PermissionRole string `json:"permission_role,omitempty"`
}

// Model is the static metadata of a model class served by endpoint routes.
type Model struct {
	Name    string            `json:"name"`
	Actions map[string]Action `json:"actions"`
}

// Catalog maps model class names to their metadata. It is built once at
// startup and read concurrently afterwards.
type Catalog struct {
	models map[string]Model
}

// NewCatalog builds a Catalog from the models_catalog configuration section.
func NewCatalog(cfg map[string]config.ModelConfig) *Catalog {
	c := &Catalog{models: make(map[string]Model, len(cfg))}
	for name, modelCfg := range cfg {
		model := Model{Name: name, Actions: make(map[string]Action, len(modelCfg.Actions))}
		for actionName, actionCfg := range modelCfg.Actions {
			model.Actions[actionName] = Action{
				Name:           actionName,
				PermissionRole: strings.TrimSpace(actionCfg.PermissionRole),
			}
		}
		c.models[strings.ToLower(name)] = model
	}
	return c
}

// Model returns the metadata of a model class. Lookup ignores case.
func (c *Catalog) Model(name string) (Model, bool) {
	if c == nil {
		return Model{}, false
	}
	m, ok := c.models[strings.ToLower(name)]
	return m, ok
}

// Action returns the metadata of an action declared on a model class.
func (c *Catalog) Action(model, action string) (Action, bool) {
	m, ok := c.Model(model)
	if !ok {
		return Action{}, false
	}
	a, ok := m.Actions[action]
	return a, ok
}

// Names lists the catalogued model classes in order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.models))
	for _, m := range c.models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}
