package usecase

import (
	"testing"
)

const travelTemplate = "Eres un asistente de viajes. El usuario planea un viaje de {days} días " +
	"con un presupuesto {budget} y un estilo de viaje {travel_type}. " +
	"Sus intereses son: {interests}. Responde en español."

func TestTemplateExtractorRecoversInterests(t *testing.T) {
	extractor := NewTemplateExtractor("interests")

	filled := "Eres un asistente de viajes. El usuario planea un viaje de 7 días " +
		"con un presupuesto medio y un estilo de viaje familiar. " +
		"Sus intereses son: Playas, Gastronomía. Responde en español."

	got, err := extractor.Extract(travelTemplate, filled)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := []string{"playas", "gastronomía"}
	if len(got) != len(want) {
		t.Fatalf("Extract() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Extract()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTemplateExtractorUnfilledTemplateYieldsNoInterests(t *testing.T) {
	extractor := NewTemplateExtractor("interests")

	got, err := extractor.Extract(travelTemplate, travelTemplate)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Extract() on unfilled template = %v, want nil", got)
	}
}

func TestTemplateExtractorNoMatchYieldsNoInterests(t *testing.T) {
	extractor := NewTemplateExtractor("interests")

	got, err := extractor.Extract(travelTemplate, "Hola, ¿qué tal?")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Extract() on unrelated input = %v, want nil", got)
	}
}

func TestTemplateExtractorRegexCharactersInTemplateAreLiteral(t *testing.T) {
	extractor := NewTemplateExtractor("interests")
	template := "Presupuesto (EUR): ver intereses [{interests}] y punto."

	got, err := extractor.Extract(template, "Presupuesto (EUR): ver intereses [museos] y punto.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 1 || got[0] != "museos" {
		t.Fatalf("Extract() = %v, want [museos]", got)
	}
}

func TestTemplateExtractorMultilineInput(t *testing.T) {
	extractor := NewTemplateExtractor("interests")
	template := "Intereses: {interests}. Fin."

	got, err := extractor.Extract(template, "Intereses: playas,\nnaturaleza. Fin.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 2 || got[0] != "playas" || got[1] != "naturaleza" {
		t.Fatalf("Extract() = %v", got)
	}
}

func TestLabeledExtractorFindsInterestsAfterLabel(t *testing.T) {
	extractor, err := NewLabeledExtractor("intereses")
	if err != nil {
		t.Fatalf("NewLabeledExtractor() error = %v", err)
	}

	got, err := extractor.Extract("", "Viaje familiar. Intereses: Playas, Cultura. Gracias")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 2 || got[0] != "playas" || got[1] != "cultura" {
		t.Fatalf("Extract() = %v", got)
	}
}

func TestLabeledExtractorNoLabel(t *testing.T) {
	extractor, err := NewLabeledExtractor("")
	if err != nil {
		t.Fatalf("NewLabeledExtractor() error = %v", err)
	}

	got, err := extractor.Extract("", "Un viaje sin más datos")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Extract() = %v, want nil", got)
	}
}

func TestNormalizeInterestsDropsEmptiesAndLowercases(t *testing.T) {
	got := normalizeInterests("  Playas , , GASTRONOMÍA,")
	if len(got) != 2 || got[0] != "playas" || got[1] != "gastronomía" {
		t.Fatalf("normalizeInterests() = %v", got)
	}
	if normalizeInterests(" , ,") != nil {
		t.Fatalf("expected nil for blank input")
	}
}
