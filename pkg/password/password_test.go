package password

import (
	"encoding/hex"
	"strings"
	"testing"
)

// cheap keeps the suite fast; the format does not depend on the work factor.
var cheap = New(1_000)

func TestHash_Format(t *testing.T) {
	stored := cheap.Hash("correct horse")

	saltHex, keyHex, ok := strings.Cut(stored, ":")
	if !ok {
		t.Fatalf("expected salt:hash, got %q", stored)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) < 16 {
		t.Fatalf("salt must be >= 16 hex-encoded bytes, got %q (%v)", saltHex, err)
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != keySize {
		t.Fatalf("key must be %d hex-encoded bytes, got %q (%v)", keySize, keyHex, err)
	}
}

func TestHash_RoundTrip(t *testing.T) {
	for _, pw := range []string{"a", "adminV66+", "pässwörd", strings.Repeat("x", 256), "with:colon"} {
		stored := cheap.Hash(pw)
		if !cheap.Verify(pw, stored) {
			t.Fatalf("Verify(%q) = false for its own hash", pw)
		}
		if cheap.Verify(pw+"!", stored) {
			t.Fatalf("Verify accepted a different password for %q", pw)
		}
	}
}

func TestHash_SaltIsRandom(t *testing.T) {
	a := cheap.Hash("same")
	b := cheap.Hash("same")
	if a == b {
		t.Fatalf("two hashes of the same password must differ")
	}
}

func TestVerify_IterationCountMatters(t *testing.T) {
	stored := cheap.Hash("pw")
	if New(1_001).Verify("pw", stored) {
		t.Fatalf("hash verified with a different iteration count")
	}
}

func TestVerify_Legacy(t *testing.T) {
	if !cheap.Verify("plain", "plain") {
		t.Fatalf("legacy plaintext should verify by equality")
	}
	if cheap.Verify("Plain", "plain") {
		t.Fatalf("legacy comparison must be exact")
	}
	if cheap.Verify("", "") {
		t.Fatalf("empty stored form must never verify")
	}
}

func TestVerify_Malformed(t *testing.T) {
	cases := []string{
		":",
		"abcd:",
		":abcd",
		"zz:abcd",
		"abcd:zz",
		"abcd:ef:01",
	}
	for _, stored := range cases {
		if cheap.Verify("anything", stored) {
			t.Fatalf("malformed stored form %q verified", stored)
		}
	}
}

func TestIsLegacy(t *testing.T) {
	if !IsLegacy("hunter2") {
		t.Fatalf("expected plaintext to be legacy")
	}
	if IsLegacy(cheap.Hash("hunter2")) {
		t.Fatalf("expected hashed form not to be legacy")
	}
}

func TestZeroValueUsesDefault(t *testing.T) {
	var h Hasher
	if h.iterations() != DefaultIterations {
		t.Fatalf("zero Hasher should use DefaultIterations, got %d", h.iterations())
	}
	if New(0).Iterations != DefaultIterations {
		t.Fatalf("New(0) should use DefaultIterations")
	}
}
