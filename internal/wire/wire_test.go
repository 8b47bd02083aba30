package wire

import (
	"bytes"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	fp := Fingerprint{MtimeNano: 1234567890123456789, Size: 42}
	payload := []byte(`{"a":1}`)

	raw := EncodeSnapshot(fp, payload)
	got, p, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if got != fp {
		t.Fatalf("fingerprint = %+v, want %+v", got, fp)
	}
	if !bytes.Equal(p, payload) {
		t.Fatalf("payload = %q, want %q", p, payload)
	}
}

func TestSnapshotEmptyPayload(t *testing.T) {
	raw := EncodeSnapshot(Fingerprint{}, nil)
	fp, p, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if fp != (Fingerprint{}) || len(p) != 0 {
		t.Fatalf("got fp=%+v len=%d", fp, len(p))
	}
}

func TestDecodeRejectsCorrupt(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("short"),
		[]byte("XXXX................................"), // bad magic
		func() []byte { // truncated payload
			raw := EncodeSnapshot(Fingerprint{Size: 7}, []byte("payload"))
			return raw[:len(raw)-3]
		}(),
		func() []byte { // bad version
			raw := EncodeSnapshot(Fingerprint{}, []byte("x"))
			raw[4] = 0xFF
			return raw
		}(),
	}
	for i, c := range cases {
		if _, _, err := DecodeSnapshot(c); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestForeignBytesRejected(t *testing.T) {
	// Raw JSON written under the store's key by external code must not be
	// mistaken for a framed snapshot.
	if _, _, err := DecodeSnapshot([]byte(`{"a":1,"padding":"xxxxxxxxxxxxxxxx"}`)); err == nil {
		t.Fatal("unframed JSON accepted as snapshot")
	}
}
