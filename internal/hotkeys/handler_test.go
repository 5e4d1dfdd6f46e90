package hotkeys

import (
	"reflect"
	"testing"
)

func TestDefaultKeymap(t *testing.T) {
	km := DefaultKeymap()

	want := map[Action][]string{
		ActionCopy:  {"control-c"},
		ActionSave:  {"control-s"},
		ActionClose: {"Escape", "q"},
	}
	for action, seqs := range want {
		if got := km[action]; !reflect.DeepEqual(got, seqs) {
			t.Errorf("DefaultKeymap()[%s] = %v, want %v", action, got, seqs)
		}
	}
}

func TestKeymapActionsSorted(t *testing.T) {
	got := DefaultKeymap().Actions()
	want := []Action{ActionClose, ActionCopy, ActionSave}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Actions() = %v, want %v", got, want)
	}
}

func TestIgnoreMasks(t *testing.T) {
	tests := []struct {
		name string
		base []uint16
		want []uint16
	}{
		{"caps only", []uint16{2}, []uint16{0, 2}},
		{"caps and numlock", []uint16{2, 16}, []uint16{0, 2, 16, 18}},
		{"three locks", []uint16{2, 16, 128}, []uint16{0, 2, 16, 18, 128, 130, 144, 146}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ignoreMasks(tt.base); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ignoreMasks(%v) = %v, want %v", tt.base, got, tt.want)
			}
		})
	}
}
