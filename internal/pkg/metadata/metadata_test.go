package metadata

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw      string
		want     string
		reserved bool
	}{
		{"project", "project", false},
		{"  Project  ", "project", false},
		{"release   notes", "release-notes", false},
		{"Release\tNotes", "release-notes", false},
		{"Topology", "topology", true},
		{"  YEAR ", "year", true},
		{"original-filename", "original-filename", true},
		{"Original  Filename", "original-filename", true},
		{"month", "month", true},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tc := range cases {
		got, reserved := Normalize(tc.raw)
		if got != tc.want || reserved != tc.reserved {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tc.raw, got, reserved, tc.want, tc.reserved)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, raw := range []string{"Some  Key", " topology ", "a\tb c", "already-canonical", ""} {
		once, _ := Normalize(raw)
		twice, _ := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", raw, once, twice)
		}
	}
}

func TestBuildCreateMetadataSystemFieldsWin(t *testing.T) {
	sys := SystemFields{
		OriginalFilename: "report-final.pdf",
		LogicalName:      "Report",
		Year:             "2026",
		Month:            "Aug",
	}
	pairs := []Pair{
		{Key: "topology", Value: "x"},
		{Key: " Original Filename ", Value: "spoofed.pdf"},
		{Key: "department", Value: "network"},
		{Key: "  ", Value: "ignored"},
	}

	meta, dropped := BuildCreateMetadata(sys, pairs)

	want := map[string]string{
		"original-filename": "report-final.pdf",
		"topology":          "Report",
		"year":              "2026",
		"month":             "Aug",
		"department":        "network",
	}
	if !reflect.DeepEqual(meta, want) {
		t.Errorf("metadata = %v, want %v", meta, want)
	}
	if !reflect.DeepEqual(dropped, []string{"topology", "original-filename"}) {
		t.Errorf("dropped = %v, want [topology original-filename]", dropped)
	}
}

func TestBuildCreateMetadataWithoutUploadFields(t *testing.T) {
	sys := SystemFields{OriginalFilename: "plan.xlsx", LogicalName: "plan"}
	meta, dropped := BuildCreateMetadata(sys, nil)

	if len(dropped) != 0 {
		t.Errorf("dropped = %v, want none", dropped)
	}
	if _, ok := meta["year"]; ok {
		t.Error("year should be absent when not supplied")
	}
	if _, ok := meta["month"]; ok {
		t.Error("month should be absent when not supplied")
	}
	if meta["original-filename"] != "plan.xlsx" || meta["topology"] != "plan" {
		t.Errorf("unexpected metadata: %v", meta)
	}
}

func TestBuildCreateMetadataUserKeyOverwrite(t *testing.T) {
	meta, _ := BuildCreateMetadata(SystemFields{LogicalName: "n"}, []Pair{
		{Key: "env", Value: "staging"},
		{Key: "ENV", Value: "production"},
	})
	if meta["env"] != "production" {
		t.Errorf("env = %q, want last write to win", meta["env"])
	}
}

func TestBuildUpdateMetadataRejectsChangedReservedKey(t *testing.T) {
	existing := map[string]string{
		"original-filename": "doc.pdf",
		"topology":          "core-net",
		"year":              "2024",
		"owner":             "alice",
	}
	pairs := []Pair{
		{Key: "year", Value: "1999"},
		{Key: "owner", Value: "bob"},
	}

	_, rejected := BuildUpdateMetadata(existing, pairs)

	if !reflect.DeepEqual(rejected, []string{"year"}) {
		t.Errorf("rejected = %v, want [year]", rejected)
	}
}

func TestBuildUpdateMetadataEchoedReservedIsNoOp(t *testing.T) {
	existing := map[string]string{
		"original-filename": "doc.pdf",
		"topology":          "core-net",
	}
	pairs := []Pair{
		{Key: "topology", Value: "core-net"},
		{Key: "original-filename", Value: "doc.pdf"},
		{Key: "reviewed", Value: "yes"},
	}

	meta, rejected := BuildUpdateMetadata(existing, pairs)

	if len(rejected) != 0 {
		t.Errorf("rejected = %v, want none", rejected)
	}
	want := map[string]string{
		"original-filename": "doc.pdf",
		"topology":          "core-net",
		"reviewed":          "yes",
	}
	if !reflect.DeepEqual(meta, want) {
		t.Errorf("metadata = %v, want %v", meta, want)
	}
}

func TestBuildUpdateMetadataReplacesUserKeys(t *testing.T) {
	existing := map[string]string{
		"topology": "core-net",
		"owner":    "alice",
		"stale":    "yes",
	}
	// stale не прислали — значит его удалили в редакторе
	pairs := []Pair{
		{Key: "owner", Value: "bob"},
		{Key: "", Value: "blank row"},
	}

	meta, rejected := BuildUpdateMetadata(existing, pairs)

	if len(rejected) != 0 {
		t.Errorf("rejected = %v, want none", rejected)
	}
	if _, ok := meta["stale"]; ok {
		t.Error("omitted user key should be removed")
	}
	if meta["owner"] != "bob" {
		t.Errorf("owner = %q, want bob", meta["owner"])
	}
	if meta["topology"] != "core-net" {
		t.Error("reserved key must survive without being resubmitted")
	}
}

func TestBuildUpdateMetadataReservedMissingFromRecord(t *testing.T) {
	// year не хранится в записи; попытка выставить его руками — отказ
	existing := map[string]string{"topology": "t"}
	_, rejected := BuildUpdateMetadata(existing, []Pair{{Key: "year", Value: "2020"}})
	if !reflect.DeepEqual(rejected, []string{"year"}) {
		t.Errorf("rejected = %v, want [year]", rejected)
	}
}
