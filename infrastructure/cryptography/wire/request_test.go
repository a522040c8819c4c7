package wire

import (
	"reflect"
	"testing"
)

func TestRequestCodec_RoundTrip(t *testing.T) {
	cases := [][]uint32{
		nil,
		{0},
		{5},
		{1, 2, 3, 4},
		{0, 100, 300, 301, 302, 70000},
		{4294967295},
	}

	for _, missing := range cases {
		encoded := EncodeRequest(missing)
		got, err := DecodeRequest(encoded)
		if err != nil {
			t.Fatalf("DecodeRequest(%v): %v", missing, err)
		}
		if len(missing) == 0 {
			if len(got) != 0 {
				t.Fatalf("DecodeRequest(nil) = %v, want empty", got)
			}
			continue
		}
		if !reflect.DeepEqual(got, missing) {
			t.Fatalf("DecodeRequest(EncodeRequest(%v)) = %v", missing, got)
		}
	}
}

func TestEncodeRequest_DenseRunIsCompact(t *testing.T) {
	missing := make([]uint32, 1000)
	for i := range missing {
		missing[i] = uint32(i)
	}
	encoded := EncodeRequest(missing)
	if len(encoded) > len(missing) {
		t.Fatalf("encoded length %d should be <= sequence count %d for a dense run", len(encoded), len(missing))
	}
}

func TestDecodeRequest_RejectsTruncatedVarint(t *testing.T) {
	if _, err := DecodeRequest([]byte{0x80}); err == nil {
		t.Fatal("expected error for truncated varint")
	}
}
