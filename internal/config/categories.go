package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

// defaultSectionCategories links guide section headings to the interest tags
// used for thematic filtering. A deployment can replace the table with a
// YAML file via CATEGORY_MAP_PATH.
var defaultSectionCategories = map[string][]string{
	"Descripción General": {
		"Naturaleza",
		"Playas",
		"Cultura",
		"Aventura",
		"Gastronomía",
		"Festivales y eventos",
		"Turismo urbano",
		"Clima agradable",
		"Viaje económico",
		"Transporte público",
		"Historia y curiosidades",
	},
	"Clima":                   {"Clima agradable"},
	"Principales Atracciones": {"Naturaleza", "Aventura", "Cultura", "Turismo urbano"},
	"Transporte":              {"Transporte público", "Viaje económico"},
	"Alojamiento":             {"Viaje económico", "Familia", "Mochilero"},
	"Comida y Bebida":         {"Gastronomía"},
	"Eventos y Festivales":    {"Festivales y eventos", "Cultura"},
	"Consejos Útiles":         {"Aventura", "Viaje económico", "Transporte público"},
	"Datos Curiosos":          {"Historia y curiosidades"},
}

// SectionCategories returns the section-to-category mapping, loading the
// override file when one is configured.
func (c Config) SectionCategories() (map[string][]string, error) {
	if c.CategoryMapPath == "" {
		return defaultSectionCategories, nil
	}

	data, err := os.ReadFile(c.CategoryMapPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "read category map", err)
	}
	out := make(map[string][]string)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "parse category map", err)
	}
	if len(out) == 0 {
		return nil, domain.WrapError(domain.ErrConfig, "parse category map", errors.New("category map file defines no sections"))
	}
	return out, nil
}
