package log

import "testing"

func TestNamedFallsBackWithoutInit(t *testing.T) {
	log = nil
	if Named("pipeline") == nil {
		t.Fatal("expected a fallback logger")
	}
	if log == nil {
		t.Error("expected the fallback logger to be retained")
	}
}

func TestInit(t *testing.T) {
	for _, debug := range []bool{true, false} {
		if err := Init(debug); err != nil {
			t.Fatalf("Init(%v): %v", debug, err)
		}
		if GetSugaredLogger() == nil {
			t.Errorf("Init(%v) left no logger", debug)
		}
	}
	Sync()
}
