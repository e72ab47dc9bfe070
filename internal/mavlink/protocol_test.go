package mavlink

import (
	"bytes"
	"testing"
)

func TestEncodeFrameRoundTripsThroughReadFrame(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	raw := EncodeFrame(7, MsgHeartbeat, payload)

	f, err := ReadFrame(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if f.Sequence != 7 {
		t.Errorf("Sequence = %v, want 7", f.Sequence)
	}
	if f.MessageID != MsgHeartbeat {
		t.Errorf("MessageID = %v, want %v", f.MessageID, MsgHeartbeat)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Errorf("Payload = %v, want %v", f.Payload, payload)
	}
}

func TestReadFrameResynchronizesOnGarbageBeforeMagic(t *testing.T) {
	payload := []byte{9, 9}
	raw := EncodeFrame(0, MsgSystemTime, payload)
	garbage := append([]byte{0x00, 0xAA, 0x01}, raw...)

	f, err := ReadFrame(bytes.NewReader(garbage))
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if f.MessageID != MsgSystemTime {
		t.Errorf("MessageID = %v, want %v", f.MessageID, MsgSystemTime)
	}
}

func TestReadFrameRejectsCorruptedChecksum(t *testing.T) {
	raw := EncodeFrame(0, MsgHeartbeat, []byte{1, 2, 3, 4})
	raw[len(raw)-1] ^= 0xFF // flip a checksum bit

	if _, err := ReadFrame(bytes.NewReader(raw)); err == nil {
		t.Errorf("expected a checksum error, got nil")
	}
}

func TestCrcExtraDiffersPerMessage(t *testing.T) {
	ids := []uint32{MsgHeartbeat, MsgSystemTime, MsgHilSensor, MsgHilGps, MsgHilStateQuaternion, MsgHilActuatorControls, MsgCommandLong, MsgCommandAck}
	seen := map[uint8]bool{}
	for _, id := range ids {
		e := crcExtra(id)
		if e == 0 {
			t.Errorf("crcExtra(%d) = 0, every known message should carry a nonzero CRC_EXTRA", id)
		}
		seen[e] = true
	}
	if len(seen) < 6 {
		t.Errorf("expected mostly-distinct CRC_EXTRA values across message set, got only %d distinct", len(seen))
	}
}

func TestEncodeFrameLengthByte(t *testing.T) {
	payload := make([]byte, 14)
	raw := EncodeFrame(0, MsgHilActuatorControls, payload)
	if raw[1] != 14 {
		t.Errorf("length byte = %v, want 14", raw[1])
	}
}
