package storage

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKindSentinels(t *testing.T) {
	err := annotate("head object", "b", "k", newError(KindNotFound, errors.New("404")))
	wrapped := fmt.Errorf("lookup: %w", err)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatal("expected wrapped error to match ErrNotFound")
	}
	for _, other := range []error{ErrBucketNotFound, ErrValidation, ErrTransport, ErrPermission} {
		if errors.Is(wrapped, other) {
			t.Fatalf("not-found error must not match %v", other)
		}
	}
	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("kind mismatch: got %v", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatal("plain errors have no kind")
	}
}

func TestErrorUnwrapReachesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := annotate("get object", "b", "k", newError(KindTransport, cause))
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{err: ErrNotFound, want: "not found"},
		{err: &Error{Kind: KindPermission, Err: errors.New("denied")}, want: "denied"},
		{err: &Error{Op: "list objects", Bucket: "b", Kind: KindStore, Err: errors.New("boom")}, want: "list objects b: boom"},
		{err: &Error{Op: "put object", Bucket: "b", Key: "k", Kind: KindValidation}, want: "put object b/k: invalid argument"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Fatalf("message mismatch: got %q want %q", got, tt.want)
		}
	}
}

func TestAnnotateDoesNotMutateBackendError(t *testing.T) {
	base := newError(KindNotFound, errors.New("404"))
	_ = annotate("get object", "b", "k", base)
	if base.Op != "" || base.Bucket != "" || base.Key != "" {
		t.Fatalf("backend error was mutated: %+v", base)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	token := encodeCursor(cursor{Prefix: "logs/", Position: "native-token"})

	prefix, position, err := resolveListRequest(ListRequest{Prefix: "ignored", ContinuationToken: token})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if prefix != "logs/" || position != "native-token" {
		t.Fatalf("cursor mismatch: prefix=%q position=%q", prefix, position)
	}

	prefix, position, err = resolveListRequest(ListRequest{Prefix: "first/"})
	if err != nil || prefix != "first/" || position != "" {
		t.Fatalf("first page resolve mismatch: prefix=%q position=%q err=%v", prefix, position, err)
	}
}

func TestCursorKeepsArbitraryBytes(t *testing.T) {
	want := cursor{Prefix: "p\xfe/", Position: "p\xfe/a\xff1"}
	got, err := decodeCursor(encodeCursor(want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("cursor mismatch: got %q/%q want %q/%q", got.Prefix, got.Position, want.Prefix, want.Position)
	}
}

func TestCursorRejectsMalformedTokens(t *testing.T) {
	for _, token := range []string{"!!", encodeCursor(cursor{Prefix: "p"}), "bm90LWpzb24"} {
		if _, err := decodeCursor(token); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for %q, got: %v", token, err)
		}
	}
}
