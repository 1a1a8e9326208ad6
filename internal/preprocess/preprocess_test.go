package preprocess

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/RRaffay/nuntium-em/internal/gdelt"
)

func TestParseMentions_PersonsAndThemes(t *testing.T) {
	t.Parallel()

	raw := "Narendra Modi,120;Janet Yellen,340;Narendra Modi,900"
	got := ParseMentions(raw, "person")
	want := []string{"Narendra_Modi", "Janet_Yellen"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestParseMentions_Locations(t *testing.T) {
	t.Parallel()

	raw := "1#India#India#IN#0#20.0#77.0#123;4#Mumbai, Maharashtra, India#Mumbai#IN#18#19.07#72.87#456;short"
	got := ParseMentions(raw, "location")
	if len(got) != 2 {
		t.Fatalf("expected 2 locations, got %v", got)
	}
	if got[0] != "India" || got[1] != "Mumbai" {
		t.Fatalf("unexpected locations %v", got)
	}
}

func TestParseMentions_Empty(t *testing.T) {
	t.Parallel()

	if got := ParseMentions("", "person"); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestRun_AppliesCaps(t *testing.T) {
	t.Parallel()

	var persons []string
	for i := 0; i < 25; i++ {
		persons = append(persons, fmt.Sprintf("Person %d,%d", i, i*10))
	}
	rec := gdelt.RawRecord{
		V2Persons:       strings.Join(persons, ";"),
		V2Organizations: "Reserve Bank of India,5",
		V2Locations:     "1#India#India#IN#0#20.0#77.0#1",
		V2Themes:        "ECON_INFLATION,10;ECON_TRADE,20;TAX_POLICY,30;EPU_CATS,40;PROTEST,50",
	}

	docs, err := Run([]gdelt.RawRecord{rec}, DefaultCaps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if len(docs[0].Persons) != 10 {
		t.Fatalf("expected persons capped at 10, got %d", len(docs[0].Persons))
	}
	if len(docs[0].Themes) != 4 {
		t.Fatalf("expected themes capped at 4, got %d", len(docs[0].Themes))
	}
}

func TestRun_SchemaErrorWhenColumnEmptyEverywhere(t *testing.T) {
	t.Parallel()

	records := []gdelt.RawRecord{
		{V2Persons: "A,1", V2Organizations: "B,1", V2Locations: "", V2Themes: "T,1"},
		{V2Persons: "C,1", V2Organizations: "D,1", V2Locations: "  ", V2Themes: "T,2"},
	}

	_, err := Run(records, DefaultCaps())
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Column != "V2Locations" {
		t.Fatalf("expected V2Locations, got %s", schemaErr.Column)
	}
}

func TestRun_EmptyBatchIsNotAnError(t *testing.T) {
	t.Parallel()

	docs, err := Run(nil, DefaultCaps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
}

func TestDescribe_StableTemplate(t *testing.T) {
	t.Parallel()

	rec := gdelt.RawRecord{
		EventCode:      "042",
		EventBaseCode:  "040",
		EventRootCode:  "04",
		GoldsteinScale: -2.5,
		AvgTone:        1.25,
		QuadClass:      3,
	}
	persons := []string{"Narendra_Modi"}
	organizations := []string{"Reserve_Bank_of_India"}
	locations := []string{"India"}
	themes := []string{"ECON_INFLATION"}

	got := Describe(rec, persons, organizations, locations, themes)
	want := "Event Codes: EventCode 042, EventBaseCode 040, EventRootCode 04. " +
		"GoldsteinScale: -2.5. AvgTone: 1.25. QuadClass: 3. " +
		"Persons: Narendra_Modi. Organizations: Reserve_Bank_of_India. " +
		"Locations: India. Themes: ECON_INFLATION"
	if got != want {
		t.Fatalf("template mismatch:\n got: %s\nwant: %s", got, want)
	}

	if again := Describe(rec, persons, organizations, locations, themes); again != got {
		t.Fatal("description is not deterministic")
	}
}
