package aggregation

import (
	"reflect"
	"sort"
	"testing"

	"github.com/kailas-cloud/picmap/internal/domain/facet"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
)

// --- Mocks ---

type recordingWidget struct {
	current string
	hidden  int
	shown   []Option
}

func (w *recordingWidget) CurrentValue() string { return w.current }
func (w *recordingWidget) SetValue(v string)    { w.current = v }
func (w *recordingWidget) Reset()               { w.current = filter.Wildcard }
func (w *recordingWidget) HideAll() {
	w.hidden++
	w.shown = nil
}
func (w *recordingWidget) ShowValue(value, label string, count int64) {
	w.shown = append(w.shown, Option{Value: value, Label: label, Count: count})
}

func visibleValues(w *ListWidget) []string {
	var out []string
	for _, o := range w.Visible() {
		out = append(out, o.Value)
	}
	sort.Strings(out)
	return out
}

func TestApply_ShowsExactlyReturnedBuckets(t *testing.T) {
	r := facet.DefaultCatalog()
	panel := NewPanel(r, map[string]map[string]string{
		facet.Countries: {"1": "France", "2": "Germany", "3": "Italy"},
	})

	applied := NewApplier(r).Apply(Result{
		"address.CountryID": {{Value: "1", Count: 10}, {Value: "3", Count: 2}},
	}, panel.Widgets())

	if !reflect.DeepEqual(applied, []string{facet.Countries}) {
		t.Errorf("applied = %v", applied)
	}
	got := panel[facet.Countries].Visible()
	want := []Option{{Value: "1", Label: "France", Count: 10}, {Value: "3", Label: "Italy", Count: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %+v, want %+v", got, want)
	}
}

func TestApply_Idempotent(t *testing.T) {
	r := facet.DefaultCatalog()
	panel := NewPanel(r, map[string]map[string]string{
		facet.Genders: {"1": "Female", "2": "Male", "3": "Other"},
	})
	res := Result{"gender.TermID": {{Value: "2", Count: 5}, {Value: "3", Count: 1}}}
	a := NewApplier(r)

	a.Apply(res, panel.Widgets())
	once := panel[facet.Genders].Visible()
	a.Apply(res, panel.Widgets())
	twice := panel[facet.Genders].Visible()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second apply changed visible set: %v vs %v", once, twice)
	}
}

func TestApply_ZeroBucketsHidesAll(t *testing.T) {
	r := facet.DefaultCatalog()
	panel := NewPanel(r, map[string]map[string]string{
		facet.Roles: {"1": "Painter", "2": "Photographer"},
	})
	NewApplier(r).Apply(Result{"role.TermID": nil}, panel.Widgets())

	if n := len(panel[facet.Roles].Visible()); n != 0 {
		t.Errorf("expected nothing visible, got %d", n)
	}
}

func TestApply_SkipsUnknownKeysAndMissingWidgets(t *testing.T) {
	r := facet.DefaultCatalog()
	w := &recordingWidget{}
	widgets := map[string]Widget{facet.Nationalities: w}

	applied := NewApplier(r).Apply(Result{
		"unknown.Field":     {{Value: "x", Count: 1}},
		"address.CountryID": {{Value: "1", Count: 1}},
		"Nationality":       {{Value: "Dutch", Count: 4}},
	}, widgets)

	if !reflect.DeepEqual(applied, []string{facet.Nationalities}) {
		t.Errorf("applied = %v", applied)
	}
	if w.hidden != 1 {
		t.Errorf("HideAll calls = %d", w.hidden)
	}
	if len(w.shown) != 1 || w.shown[0].Label != "Dutch" || w.shown[0].Count != 4 {
		t.Errorf("shown = %+v", w.shown)
	}
}

func TestApply_OtherFacetsUntouched(t *testing.T) {
	r := facet.DefaultCatalog()
	panel := NewPanel(r, map[string]map[string]string{
		facet.Countries:    {"1": "France", "2": "Germany"},
		facet.AddressTypes: {"7": "Birth", "8": "Death"},
	})
	NewApplier(r).Apply(Result{"address.CountryID": {{Value: "2", Count: 1}}}, panel.Widgets())

	if got := visibleValues(panel[facet.AddressTypes]); !reflect.DeepEqual(got, []string{"7", "8"}) {
		t.Errorf("address types = %v", got)
	}
	if got := visibleValues(panel[facet.Countries]); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("countries = %v", got)
	}
}

func TestListWidget_Values(t *testing.T) {
	w := NewListWidget(map[string]string{"1": "B", "2": "A"})
	if w.CurrentValue() != filter.Wildcard {
		t.Errorf("initial value = %q", w.CurrentValue())
	}
	w.SetValue("2")
	if w.CurrentValue() != "2" {
		t.Errorf("value = %q", w.CurrentValue())
	}
	w.SetValue("")
	if w.CurrentValue() != filter.Wildcard {
		t.Errorf("empty value should be wildcard, got %q", w.CurrentValue())
	}
	w.SetValue("1")
	w.Reset()
	if w.CurrentValue() != filter.Wildcard {
		t.Errorf("reset value = %q", w.CurrentValue())
	}

	vis := w.Visible()
	if len(vis) != 2 || vis[0].Label != "A" || vis[1].Label != "B" {
		t.Errorf("visible order = %+v", vis)
	}

	w.HideAll()
	w.ShowValue("9", "", 3)
	if !w.IsVisible("9") || w.Visible()[0].Label != "9" {
		t.Errorf("unknown value should fall back to its own label: %+v", w.Visible())
	}
}

func TestPanel_SyncAndSnapshot(t *testing.T) {
	r := facet.DefaultCatalog()
	panel := NewPanel(r, nil)
	for _, d := range r.All() {
		_, ok := panel[d.ID]
		if ok != d.Aggregatable() {
			t.Errorf("%s: widget present = %v", d.ID, ok)
		}
	}

	s := filter.NewState(r)
	if err := s.Set(facet.Formats, "12"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	panel.Sync(s)
	if panel[facet.Formats].CurrentValue() != "12" {
		t.Errorf("format value = %q", panel[facet.Formats].CurrentValue())
	}
	if panel[facet.Genders].CurrentValue() != filter.Wildcard {
		t.Errorf("gender value = %q", panel[facet.Genders].CurrentValue())
	}
	if len(panel.Snapshot()) != len(panel) {
		t.Error("snapshot should cover every widget")
	}
}

func TestPanel_ShowAll(t *testing.T) {
	r := facet.DefaultCatalog()
	panel := NewPanel(r, map[string]map[string]string{facet.Countries: {"1": "France", "2": "Germany"}})
	NewApplier(r).Apply(Result{"address.CountryID": nil}, panel.Widgets())
	if len(panel[facet.Countries].Visible()) != 0 {
		t.Fatal("expected countries hidden")
	}
	panel.ShowAll()
	if got := visibleValues(panel[facet.Countries]); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("countries = %v", got)
	}
}
