package settings

import "testing"

func TestGetSettingsSeedsDefaultsOnce(t *testing.T) {
	first := GetSettings()
	second := GetSettings()
	if first != second {
		t.Fatalf("expected GetSettings to return the same process-wide instance")
	}
	if first.MinDegree == 0 {
		t.Fatalf("expected a nonzero default MinDegree")
	}
}

func TestUpdateSettingsMergesNonZeroFields(t *testing.T) {
	before := GetSettings()
	originalMinDegree := before.MinDegree

	UpdateSettings(Arguments{DataFile: "custom.db"})
	after := GetSettings()

	if after.DataFile != "custom.db" {
		t.Fatalf("expected DataFile to be updated, got %q", after.DataFile)
	}
	if after.MinDegree != originalMinDegree {
		t.Fatalf("expected MinDegree to be left untouched by a zero-valued field, got %d", after.MinDegree)
	}
}

func TestUpdateSettingsAlwaysAppliesBooleanFlags(t *testing.T) {
	UpdateSettings(Arguments{Verbose: true})
	if !GetSettings().Verbose {
		t.Fatalf("expected Verbose to be set true")
	}

	UpdateSettings(Arguments{Verbose: false})
	if GetSettings().Verbose {
		t.Fatalf("expected Verbose=false to actually apply, since booleans aren't skipped like other zero values")
	}
}
