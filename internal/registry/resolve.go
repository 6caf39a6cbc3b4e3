package registry

import (
	"strings"

	"github.com/vango-dev/uiregistry/internal/errors"
)

// ResolveDependencies returns names and their registryDependencies in
// install order: every item after the items it depends on, each item once.
// Dependencies given as URLs point at other registries and are skipped.
func ResolveDependencies(m *Manifest, names []string) ([]*Item, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var order []*Item

	var resolve func(name string, from string) error
	resolve = func(name, from string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return errors.New("E011").
				WithDetailf("Dependency cycle through %q", name)
		}

		item, ok := m.Item(name)
		if !ok {
			err := errors.New("E012").WithResource(name)
			if from != "" {
				err = err.WithDetailf("Required by %q", from)
			}
			return err
		}

		state[name] = visiting
		for _, dep := range item.RegistryDependencies {
			if strings.Contains(dep, "://") {
				continue
			}
			if err := resolve(dep, name); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, item)
		return nil
	}

	for _, name := range names {
		if err := resolve(name, ""); err != nil {
			return nil, err
		}
	}
	return order, nil
}
