package transport

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	meta := []byte(`{"kind":"split-file-chunk","index":0}`)
	payload := []byte("payload bytes here")

	frame, err := marshalFrame(meta, payload)
	if err != nil {
		t.Fatalf("marshalFrame failed: %v", err)
	}

	gotMeta, gotPayload, err := parseFrame(frame)
	if err != nil {
		t.Fatalf("parseFrame failed: %v", err)
	}
	if !bytes.Equal(gotMeta, meta) {
		t.Errorf("metadata = %q, want %q", gotMeta, meta)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload = %q, want %q", gotPayload, payload)
	}
}

func TestFrameEmptyPayload(t *testing.T) {
	frame, err := marshalFrame([]byte(`{}`), nil)
	if err != nil {
		t.Fatalf("marshalFrame failed: %v", err)
	}
	meta, payload, err := parseFrame(frame)
	if err != nil {
		t.Fatalf("parseFrame failed: %v", err)
	}
	if string(meta) != `{}` {
		t.Errorf("metadata = %q", meta)
	}
	if len(payload) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(payload))
	}
}

func TestParseFrameMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"one byte", []byte{0x01}},
		{"zero metadata length", []byte{0x00, 0x00, 'x'}},
		{"metadata length past end", []byte{0x00, 0x10, 'a', 'b'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parseFrame(tt.data); !errors.Is(err, errFrameMalformed) {
				t.Errorf("expected errFrameMalformed, got %v", err)
			}
		})
	}
}

func TestMarshalFrameOversizedMetadata(t *testing.T) {
	meta := make([]byte, maxFrameMetaLen+1)
	if _, err := marshalFrame(meta, nil); !errors.Is(err, errFrameMalformed) {
		t.Errorf("expected errFrameMalformed, got %v", err)
	}
}

func TestParseFrameDoesNotAliasInput(t *testing.T) {
	frame, err := marshalFrame([]byte(`{"k":1}`), []byte("data"))
	if err != nil {
		t.Fatalf("marshalFrame failed: %v", err)
	}

	meta, payload, err := parseFrame(frame)
	if err != nil {
		t.Fatalf("parseFrame failed: %v", err)
	}

	for i := range frame {
		frame[i] = 0
	}
	if string(meta) != `{"k":1}` || string(payload) != "data" {
		t.Error("parsed parts alias the input frame buffer")
	}
}
