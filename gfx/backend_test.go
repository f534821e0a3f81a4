package gfx

import "testing"

type stubContext struct{ Context }

func TestOpenPrefersFirstSuccess(t *testing.T) {
	want := &stubContext{}
	calls := 0
	ctx, err := Open(
		func() (Context, error) { calls++; return want, nil },
		func() (Context, error) { calls++; t.Fatal("fallback opener should not run"); return nil, nil },
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ctx != Context(want) {
		t.Fatal("Open did not return the first opener's context")
	}
	if calls != 1 {
		t.Fatalf("got %d opener calls, want 1", calls)
	}
}

func TestOpenFallsBackOnError(t *testing.T) {
	want := &stubContext{}
	ctx, err := Open(
		func() (Context, error) { return nil, ErrNoDevice },
		func() (Context, error) { return want, nil },
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ctx != Context(want) {
		t.Fatal("Open did not fall back to the second opener")
	}
}

func TestOpenReturnsFirstErrorWhenAllFail(t *testing.T) {
	_, err := Open(
		func() (Context, error) { return nil, ErrNotInstalled },
		func() (Context, error) { return nil, ErrNoDevice },
	)
	if err != ErrNotInstalled {
		t.Fatalf("got %v, want ErrNotInstalled", err)
	}
}
