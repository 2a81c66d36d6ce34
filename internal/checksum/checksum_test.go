package checksum

import "testing"

func TestSum_Deterministic(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	if a != b {
		t.Errorf("Sum not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64 hex chars", len(a))
	}
	if a == Sum([]byte("hello!")) {
		t.Error("different inputs produced equal digests")
	}
}

func TestLine_Format(t *testing.T) {
	h := Line("Some line")
	if len(h) != 8 {
		t.Fatalf("len = %d, want 8", len(h))
	}
	for _, c := range h {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Fatalf("non-hex char %q in %q", c, h)
		}
	}
}

func TestLine_SensitiveToContent(t *testing.T) {
	if Line("alpha") == Line("beta") {
		t.Error("distinct lines hashed equal")
	}
	if Line("alpha") != Line("alpha") {
		t.Error("same line hashed differently")
	}
	// Whitespace is part of the exact line text.
	if Line("alpha") == Line("alpha ") {
		t.Error("trailing space should change the hash")
	}
}

func TestLine_EmptyLine(t *testing.T) {
	if h := Line(""); len(h) != 8 {
		t.Errorf("empty line hash = %q", h)
	}
}
