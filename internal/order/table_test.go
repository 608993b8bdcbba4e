package order

import (
	"reflect"
	"testing"
)

func TestTableAdd(t *testing.T) {
	tbl := NewTable("deps")
	tbl.Add("a", "b")
	tbl.Add("a", "c")
	tbl.Add("a", "b")
	tbl.Add("x", "y")

	if tbl.Name() != "deps" {
		t.Errorf("Name() = %q, want %q", tbl.Name(), "deps")
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
	if got := tbl.After("a"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("After(a) = %v, want [b c]", got)
	}
	if got := tbl.After("nobody"); len(got) != 0 {
		t.Errorf("After(nobody) = %v, want empty", got)
	}

	want := []Edge{{"a", "b"}, {"a", "c"}, {"x", "y"}}
	if got := tbl.Edges(); !reflect.DeepEqual(got, want) {
		t.Errorf("Edges() = %v, want %v", got, want)
	}
}

func TestTablePrune(t *testing.T) {
	tbl := NewTable("deps")
	tbl.Add("a", "b")
	tbl.Add("a", "ghost")
	tbl.Add("ghost", "b")
	tbl.Add("b", "c")

	known := map[string]bool{"a": true, "b": true, "c": true}
	dropped := tbl.Prune(func(name string) bool { return known[name] })

	wantDropped := []Edge{{"a", "ghost"}, {"ghost", "b"}}
	if !reflect.DeepEqual(dropped, wantDropped) {
		t.Errorf("Prune() dropped = %v, want %v", dropped, wantDropped)
	}

	wantKept := []Edge{{"a", "b"}, {"b", "c"}}
	if got := tbl.Edges(); !reflect.DeepEqual(got, wantKept) {
		t.Errorf("Edges() after Prune = %v, want %v", got, wantKept)
	}
}

func TestTablePruneEmptiesSource(t *testing.T) {
	tbl := NewTable("deps")
	tbl.Add("a", "ghost")

	tbl.Prune(func(name string) bool { return name == "a" })

	if tbl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tbl.Len())
	}
	if len(tbl.Edges()) != 0 {
		t.Errorf("Edges() = %v, want empty", tbl.Edges())
	}
}
