package models

import "testing"

func TestDraftNormalize(t *testing.T) {
	d := Draft{
		Title:    "  Cat ",
		Category: "\tPony\n",
		Tags:     " Animal, FUR ",
		Positive: " a cat ",
		Negative: " blurry\n",
	}.Normalize()

	if d.Title != "Cat" || d.Category != "Pony" || d.Positive != "a cat" || d.Negative != "blurry" {
		t.Errorf("Fields were not trimmed: %+v", d)
	}
	if d.Tags != "animal, fur" {
		t.Errorf("Tags should be lower-cased, got %q", d.Tags)
	}
}

func TestSummaryListItem(t *testing.T) {
	s := Summary{Name: "Neon\nAlley", Category: "Pony", Favorite: true}
	if got := s.Title(); got != "★ Neon Alley" {
		t.Errorf("Title = %q", got)
	}
	if got := s.FilterValue(); got != "Neon Alley" {
		t.Errorf("FilterValue = %q", got)
	}
	if got := s.Description(); got != "Pony" {
		t.Errorf("Description = %q", got)
	}

	s.Favorite = false
	if got := s.Title(); got != "Neon Alley" {
		t.Errorf("Non-favorite title should have no star, got %q", got)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
	}{
		{"", AllFilter()},
		{"All", AllFilter()},
		{"Favorites", FavoritesFilter()},
		{"Pony", CategoryFilter("Pony")},
		{"favorites", CategoryFilter("favorites")},
	}
	for _, tt := range tests {
		if got := ParseFilter(tt.in); got != tt.want {
			t.Errorf("ParseFilter(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if tt.in != "" && ParseFilter(tt.in).String() != tt.in {
			t.Errorf("String() should round-trip %q", tt.in)
		}
	}
}

func TestFilterOptions(t *testing.T) {
	got := FilterOptions([]string{"Pony", "Upscale"})
	want := []string{"All", "Favorites", "Pony", "Upscale"}
	if len(got) != len(want) {
		t.Fatalf("FilterOptions = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FilterOptions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListing(t *testing.T) {
	l := &Listing{Items: []Summary{{Name: "a"}, {Name: "b"}}}
	if title, ok := l.TitleAt(1); !ok || title != "b" {
		t.Errorf("TitleAt(1) = %q, %v", title, ok)
	}
	if _, ok := l.TitleAt(2); ok {
		t.Error("TitleAt past the end should fail")
	}
	if _, ok := l.TitleAt(-1); ok {
		t.Error("TitleAt(-1) should fail")
	}
	if l.IndexOf("b") != 1 || l.IndexOf("z") != -1 {
		t.Error("IndexOf returned wrong rows")
	}

	var empty *Listing
	if empty.Len() != 0 || empty.IndexOf("a") != -1 {
		t.Error("nil listing should be empty")
	}
}

func TestSettingDefaultsAndValidation(t *testing.T) {
	if DefaultSetting(SettingTheme) != ThemeSystem {
		t.Errorf("Default theme should be System")
	}
	if DefaultSetting(SettingLastCategory) != "Pony" {
		t.Errorf("Default last category should be Pony")
	}
	if DefaultSetting("nope") != "" {
		t.Error("Unknown keys have no default")
	}

	for _, theme := range []string{ThemeDark, ThemeLight, ThemeSystem} {
		if err := ValidateSetting(SettingTheme, theme); err != nil {
			t.Errorf("Theme %s should be valid: %v", theme, err)
		}
	}
	if ValidateSetting(SettingTheme, "dark") == nil {
		t.Error("Theme names are case-sensitive")
	}
	if ValidateSetting(SettingWindowGeometry, "anything") != nil {
		t.Error("Free-form settings accept any value")
	}
}
