package gateway

import (
	"bytes"
	"testing"
)

func TestAcceptKeyRFC6455Vector(t *testing.T) {
	got := acceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("acceptKey() = %q, want %q", got, want)
	}
}

func maskPayload(payload []byte, key [4]byte) []byte {
	out := make([]byte, len(payload))
	for i, b := range payload {
		out[i] = b ^ key[i&3]
	}
	return out
}

func buildMaskedClientFrame(fin bool, opcode byte, payload []byte) []byte {
	var b0 byte = opcode & 0x0F
	if fin {
		b0 |= 0x80
	}
	key := [4]byte{0x12, 0x34, 0x56, 0x78}
	masked := maskPayload(payload, key)

	var out []byte
	n := len(payload)
	switch {
	case n <= 125:
		out = append(out, b0, byte(n)|0x80)
	case n <= 0xFFFF:
		out = append(out, b0, 126|0x80, byte(n>>8), byte(n))
	default:
		out = append(out, b0, 127|0x80,
			byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
			byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
	out = append(out, key[:]...)
	out = append(out, masked...)
	return out
}

func TestParseFrameUnmasksPayload(t *testing.T) {
	payload := []byte("hello")
	wire := buildMaskedClientFrame(true, opText, payload)

	frame, consumed, ok := parseFrame(wire)
	if !ok {
		t.Fatal("expected a complete frame")
	}
	if consumed != len(wire) {
		t.Errorf("consumed = %d, want %d", consumed, len(wire))
	}
	if !bytes.Equal(frame.payload, payload) {
		t.Errorf("payload = %q, want %q", frame.payload, payload)
	}
	if !frame.fin || frame.opcode != opText {
		t.Errorf("fin/opcode = %v/%d", frame.fin, frame.opcode)
	}
}

func TestParseFrameWaitsForMoreData(t *testing.T) {
	wire := buildMaskedClientFrame(true, opText, []byte("hello"))
	_, _, ok := parseFrame(wire[:len(wire)-1])
	if ok {
		t.Error("expected parseFrame to report incomplete data")
	}
}

func TestFrameRoundTripAcrossLengthEncodings(t *testing.T) {
	for _, n := range []int{0, 1, 125, 126, 127, 0xFFFF, 0x10000} {
		payload := bytes.Repeat([]byte{0xAB}, n)
		wire := buildMaskedClientFrame(true, opBinary, payload)
		frame, consumed, ok := parseFrame(wire)
		if !ok {
			t.Fatalf("n=%d: expected complete frame", n)
		}
		if consumed != len(wire) {
			t.Errorf("n=%d: consumed = %d, want %d", n, consumed, len(wire))
		}
		if !bytes.Equal(frame.payload, payload) {
			t.Errorf("n=%d: payload mismatch (len got %d want %d)", n, len(frame.payload), n)
		}

		server := encodeFrame(true, opBinary, payload)
		reparsed, consumed2, ok2 := parseFrame(server)
		if !ok2 || consumed2 != len(server) {
			t.Fatalf("n=%d: server frame did not round-trip", n)
		}
		if !bytes.Equal(reparsed.payload, payload) {
			t.Errorf("n=%d: server round-trip payload mismatch", n)
		}
	}
}

func TestEncodeFrameNeverMasks(t *testing.T) {
	wire := encodeFrame(true, opPong, []byte("ping"))
	if wire[1]&0x80 != 0 {
		t.Error("server frames must never set the MASK bit")
	}
}
