package events

import "testing"

func TestKinds_Warning(t *testing.T) {
	warn := map[Kind]bool{KindClamped: true, KindInfeasible: true, KindCapacityViolation: true}
	if len(Kinds()) != 7 {
		t.Fatalf("expected 7 kinds, got %d", len(Kinds()))
	}
	for _, k := range Kinds() {
		if k.Warning() != warn[k] {
			t.Fatalf("kind %s: warning=%v", k, k.Warning())
		}
	}
}
