package facet

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultCatalog_Order(t *testing.T) {
	r := DefaultCatalog()
	want := []string{
		AddressTypes, Countries, BBox, Nationalities, Genders, Processes,
		Roles, Formats, Biographies, Collections, NameQuery, Date,
	}
	all := r.All()
	if len(all) != len(want) {
		t.Fatalf("expected %d facets, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("facet %d: expected %q, got %q", i, id, all[i].ID)
		}
	}
}

func TestFindByID(t *testing.T) {
	r := DefaultCatalog()
	d, err := r.FindByID(Countries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Key() != "address.CountryID" {
		t.Errorf("Key() = %q", d.Key())
	}

	_, err = r.FindByID("camera")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByKey(t *testing.T) {
	r := DefaultCatalog()
	tests := []struct {
		scope, field string
		wantID       string
	}{
		{"address", "CountryID", Countries},
		{"gender", "TermID", Genders},
		{"process", "TermID", Processes},
		{"", "Nationality", Nationalities},
		{"", "DisplayName", NameQuery},
		{"", "bbox", BBox},
		{"", "Date", Date},
	}
	for _, tc := range tests {
		d, err := r.FindByKey(tc.scope, tc.field)
		if err != nil {
			t.Errorf("FindByKey(%q, %q): %v", tc.scope, tc.field, err)
			continue
		}
		if d.ID != tc.wantID {
			t.Errorf("FindByKey(%q, %q) = %q, want %q", tc.scope, tc.field, d.ID, tc.wantID)
		}
	}

	if _, err := r.FindByKey("", "TermID"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for bare TermID, got %v", err)
	}
}

func TestSideOf(t *testing.T) {
	r := DefaultCatalog()
	tests := []struct {
		id   string
		want Side
	}{
		{AddressTypes, ChildSide},
		{Countries, ChildSide},
		{BBox, ChildSide},
		{Date, ChildSide},
		{Nationalities, ParentSide},
		{Genders, ParentSide},
		{NameQuery, ParentSide},
	}
	for _, tc := range tests {
		d, _ := r.FindByID(tc.id)
		if got := r.SideOf(d); got != tc.want {
			t.Errorf("SideOf(%s) = %s, want %s", tc.id, got, tc.want)
		}
	}
}

func TestAggregatable(t *testing.T) {
	r := DefaultCatalog()
	var ids []string
	for _, d := range r.All() {
		if d.Aggregatable() {
			ids = append(ids, d.ID)
		}
	}
	got := strings.Join(ids, ",")
	want := "addresstypes,countries,nationalities,genders,processes,roles,formats,biographies,collections"
	if got != want {
		t.Errorf("aggregatable = %s, want %s", got, want)
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key, scope, field string
	}{
		{"address.CountryID", "address", "CountryID"},
		{"Nationality", "", "Nationality"},
		{"a.b.c", "a", "b.c"},
		{"", "", ""},
	}
	for _, tc := range tests {
		s, f := SplitKey(tc.key)
		if s != tc.scope || f != tc.field {
			t.Errorf("SplitKey(%q) = (%q, %q), want (%q, %q)", tc.key, s, f, tc.scope, tc.field)
		}
		if tc.key != "" && JoinKey(s, f) != tc.key {
			t.Errorf("JoinKey(SplitKey(%q)) = %q", tc.key, JoinKey(s, f))
		}
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name    string
		defs    []Definition
		wantErr string
	}{
		{"empty id", []Definition{{FieldName: "x"}}, "id is required"},
		{"empty field", []Definition{{ID: "x"}}, "field name is required"},
		{"dotted field", []Definition{{ID: "x", FieldName: "a.b"}}, "must not contain a dot"},
		{"dup id", []Definition{{ID: "x", FieldName: "a"}, {ID: "x", FieldName: "b"}}, "duplicate facet id"},
		{"dup key", []Definition{{ID: "x", FieldName: "a"}, {ID: "y", FieldName: "a"}}, "duplicate facet key"},
		{"spatial without geo", []Definition{{ID: "x", FieldName: "a", Kind: Spatial}}, "geo field"},
		{"date without fields", []Definition{{ID: "x", FieldName: "a", Kind: DateRange}}, "range fields"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(DefaultSchema(), tc.defs...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tc.wantErr)
			}
		})
	}

	if _, err := NewRegistry(Schema{}); err == nil {
		t.Error("expected error for empty schema")
	}
}

func TestRegistry_AllIsACopy(t *testing.T) {
	r := DefaultCatalog()
	all := r.All()
	all[0].ID = "mutated"
	if r.At(0).ID != AddressTypes {
		t.Error("All() must not expose registry storage")
	}
}
