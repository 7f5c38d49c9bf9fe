package service

import (
	"regexp"

	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/domain"
)

var moduleIDPattern = regexp.MustCompile(`^[a-z0-9_\-]+$`)

// moduleCatalog serves the module list from configuration.
type moduleCatalog struct {
	order   []string
	modules map[string]domain.Module
}

func NewModuleCatalog(modules []config.ModuleConfig) domain.ModuleCatalog {
	c := &moduleCatalog{modules: make(map[string]domain.Module, len(modules))}
	for _, m := range modules {
		if _, dup := c.modules[m.ID]; dup {
			continue
		}
		c.order = append(c.order, m.ID)
		c.modules[m.ID] = domain.Module{ID: m.ID, Name: m.Name, Topics: append([]string(nil), m.Topics...)}
	}
	return c
}

func (c *moduleCatalog) Module(id string) (domain.Module, error) {
	m, ok := c.modules[id]
	if !ok {
		return domain.Module{}, domain.NewModuleNotFoundError(id)
	}
	return m, nil
}

func (c *moduleCatalog) Modules() []domain.Module {
	out := make([]domain.Module, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.modules[id])
	}
	return out
}

// resolveModule looks id up in the catalog; requested topics override the configured list.
// An unknown id is only accepted when the caller supplies its own topics.
func resolveModule(catalog domain.ModuleCatalog, id string, topics []string) (domain.Module, error) {
	m, err := catalog.Module(id)
	if err != nil {
		if len(topics) == 0 || !moduleIDPattern.MatchString(id) {
			return domain.Module{}, err
		}
		m = domain.Module{ID: id, Name: id}
	}
	if len(topics) > 0 {
		m.Topics = topics
	}
	return m, nil
}
