package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

// Store holds the evaluation scenarios loaded from a YAML catalog. The
// catalog is read once at startup; a malformed file is a configuration
// error, not something to tolerate at evaluation time.
type Store struct {
	scenarios []domain.Scenario
	byName    map[string]*domain.Scenario
}

func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "read scenario catalog", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Store, error) {
	var scenarios []domain.Scenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "parse scenario catalog", err)
	}

	byName := make(map[string]*domain.Scenario, len(scenarios))
	for i := range scenarios {
		name := scenarios[i].Name
		if name == "" {
			return nil, domain.WrapError(domain.ErrConfig, "parse scenario catalog",
				fmt.Errorf("scenario %d has no name", i))
		}
		if _, exists := byName[name]; exists {
			return nil, domain.WrapError(domain.ErrConfig, "parse scenario catalog",
				fmt.Errorf("duplicate scenario name %q", name))
		}
		byName[name] = &scenarios[i]
	}

	return &Store{scenarios: scenarios, byName: byName}, nil
}

// List returns scenario names in catalog order.
func (s *Store) List() ([]string, error) {
	names := make([]string, len(s.scenarios))
	for i := range s.scenarios {
		names[i] = s.scenarios[i].Name
	}
	return names, nil
}

func (s *Store) ByName(name string) (*domain.Scenario, error) {
	sc, ok := s.byName[name]
	if !ok {
		return nil, domain.WrapError(domain.ErrScenarioNotFound, "lookup scenario", fmt.Errorf("name %q", name))
	}
	out := *sc
	return &out, nil
}
