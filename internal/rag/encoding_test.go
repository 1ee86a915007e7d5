package rag

import "testing"

func TestDecodeVector_InvalidLength(t *testing.T) {
	t.Parallel()

	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for 3-byte blob")
	}
}

func TestEncodeDecodeVector(t *testing.T) {
	t.Parallel()

	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := DecodeVector(EncodeVector(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}
