package vocabulary

import (
	"fmt"
	"testing"
)

func TestNew_DedupAndSort(t *testing.T) {
	v := New(
		[]string{"Pilot", "first aid", "First Aid", " "},
		[]string{"medical", "Medical", "technical"},
		[]string{"VOLCANIC", "CRYO"},
		[]string{"Dr. Frost"},
	)

	attrs := v.Attributes()
	if len(attrs) != 2 || attrs[0] != "first aid" || attrs[1] != "Pilot" {
		t.Errorf("Attributes() = %v", attrs)
	}
	if cats := v.Categories(); len(cats) != 2 || cats[0] != "medical" {
		t.Errorf("Categories() = %v", cats)
	}
	if locs := v.Locations(); len(locs) != 2 || locs[0] != "CRYO" {
		t.Errorf("Locations() = %v", locs)
	}
	if v.IsEmpty() {
		t.Error("IsEmpty() = true")
	}
}

func TestNew_CapsAttributes(t *testing.T) {
	names := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		names = append(names, fmt.Sprintf("skill %03d", i))
	}
	v := New(names, nil, nil, nil)
	if len(v.Attributes()) != MaxAttributes {
		t.Errorf("len(Attributes()) = %d, want %d", len(v.Attributes()), MaxAttributes)
	}
	if v.Attributes()[MaxAttributes-1] != "skill 099" {
		t.Errorf("last attribute = %q", v.Attributes()[MaxAttributes-1])
	}
}

func TestEmpty(t *testing.T) {
	if !New(nil, nil, nil, nil).IsEmpty() {
		t.Error("IsEmpty() = false for empty vocabulary")
	}
	var zero Vocabulary
	if !zero.IsEmpty() {
		t.Error("zero value must be empty")
	}
}
