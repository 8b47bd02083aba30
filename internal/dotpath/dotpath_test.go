package dotpath

import (
	"reflect"
	"testing"
)

func sample() map[string]any {
	return map[string]any{
		"user": map[string]any{
			"name": "Ada",
			"prefs": map[string]any{
				"theme": "dark",
			},
		},
		"count": float64(3),
		"tags":  []any{"a", "b"},
	}
}

func TestGetNested(t *testing.T) {
	doc := sample()

	v, ok := Get(doc, "user.prefs.theme")
	if !ok || v != "dark" {
		t.Fatalf("Get user.prefs.theme = %v, %v", v, ok)
	}
	if v, ok := Get(doc, "count"); !ok || v != float64(3) {
		t.Fatalf("Get count = %v, %v", v, ok)
	}
}

func TestGetEmptyPathReturnsRoot(t *testing.T) {
	doc := sample()
	v, ok := Get(doc, "")
	if !ok {
		t.Fatal("Get root miss")
	}
	if !reflect.DeepEqual(v, doc) {
		t.Fatalf("Get root = %v", v)
	}
}

func TestGetMissAndNonTraversable(t *testing.T) {
	doc := sample()
	if _, ok := Get(doc, "user.missing.deep"); ok {
		t.Fatal("expected miss on absent segment")
	}
	// "count" is a number; descending into it must miss, not panic.
	if _, ok := Get(doc, "count.x"); ok {
		t.Fatal("expected miss through scalar")
	}
	// dot segments are object keys, never array indices
	if _, ok := Get(doc, "tags.0"); ok {
		t.Fatal("expected miss on numeric-looking segment into array")
	}
}

func TestSetMaterializesIntermediates(t *testing.T) {
	doc := map[string]any{}
	if err := Set(doc, "a.b.c", 42); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := Get(doc, "a.b.c")
	if !ok || v != 42 {
		t.Fatalf("Get after Set = %v, %v", v, ok)
	}
}

func TestSetOverwritesScalarIntermediate(t *testing.T) {
	doc := map[string]any{"a": "scalar"}
	if err := Set(doc, "a.b", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := Get(doc, "a.b"); !ok || v != 1 {
		t.Fatalf("Get a.b = %v, %v", v, ok)
	}
}

func TestSetEmptyPathErrors(t *testing.T) {
	if err := Set(map[string]any{}, "", 1); err != ErrEmptyPath {
		t.Fatalf("Set empty path err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	doc := sample()
	if !Delete(doc, "user.prefs.theme") {
		t.Fatal("Delete existing returned false")
	}
	if _, ok := Get(doc, "user.prefs.theme"); ok {
		t.Fatal("value survived Delete")
	}
	// sibling untouched
	if v, ok := Get(doc, "user.name"); !ok || v != "Ada" {
		t.Fatalf("sibling after Delete = %v, %v", v, ok)
	}
}

func TestDeleteUnresolvedPathIsNoop(t *testing.T) {
	doc := sample()
	if Delete(doc, "user.nope.deep") {
		t.Fatal("Delete on unresolved path returned true")
	}
	if Delete(doc, "") {
		t.Fatal("Delete on empty path returned true")
	}
	if Delete(doc, "count.x") {
		t.Fatal("Delete through scalar returned true")
	}
}
