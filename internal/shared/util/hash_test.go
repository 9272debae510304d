package util

import "testing"

func TestHashUserKey(t *testing.T) {
	id := "guest:12345"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestHashFieldsIsLengthPrefixed(t *testing.T) {
	if HashFields("ab", "c") == HashFields("a", "bc") {
		t.Fatalf("field boundaries should change the hash")
	}
	if HashFields("model", "prompt") != HashFields("model", "prompt") {
		t.Fatalf("expected stable hash")
	}
	if HashBytes([]byte("guest:1")) != HashUserKey("guest:1") {
		t.Fatalf("HashUserKey should hash the raw id")
	}
}
