package shared

import (
	"context"
	"testing"
)

func TestWithLogAttrsAccumulates(t *testing.T) {
	ctx := WithLogAttrs(context.Background(), "request_id", "abc")
	ctx = WithLogAttrs(ctx, "route", "/getstage1")

	got := LogAttrs(ctx)
	want := []any{"request_id", "abc", "route", "/getstage1"}
	if len(got) != len(want) {
		t.Fatalf("LogAttrs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LogAttrs()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if attrs := LogAttrs(context.Background()); attrs != nil {
		t.Fatalf("LogAttrs(empty) = %v, want nil", attrs)
	}
}
