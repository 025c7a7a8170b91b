package tunebox_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/wizzlekids/tunebox"
)

func TestWavHeader(t *testing.T) {
	buffer := tunebox.AudioBuffer{0, 0.5, -0.5, 1}
	for _, pcm16 := range []bool{true, false} {
		b, err := tunebox.Wav(buffer, 22050, pcm16)
		if err != nil {
			t.Fatalf("Wav failed: %v", err)
		}
		if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
			t.Fatalf("missing RIFF/WAVE tags")
		}
		if ch := binary.LittleEndian.Uint16(b[22:24]); ch != 1 {
			t.Errorf("channels = %v, expected 1", ch)
		}
		if sr := binary.LittleEndian.Uint32(b[24:28]); sr != 22050 {
			t.Errorf("sample rate = %v, expected 22050", sr)
		}
		if riff := binary.LittleEndian.Uint32(b[4:8]); int(riff) != len(b)-8 {
			t.Errorf("RIFF chunk size = %v, file length %v", riff, len(b))
		}
		bytesPerSample := 4
		if pcm16 {
			bytesPerSample = 2
		}
		dataLen := binary.LittleEndian.Uint32(b[len(b)-len(buffer)*bytesPerSample-4:])
		if int(dataLen) != len(buffer)*bytesPerSample {
			t.Errorf("data chunk length = %v", dataLen)
		}
	}
}

func TestRawPCM16(t *testing.T) {
	b, err := tunebox.Raw(tunebox.AudioBuffer{1, -1, 2}, true)
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	if len(b) != 6 {
		t.Fatalf("length = %v, expected 6", len(b))
	}
	if v := int16(binary.LittleEndian.Uint16(b[4:6])); v != 32767 {
		t.Errorf("clipped sample = %v, expected 32767", v)
	}
}

func TestResample(t *testing.T) {
	buffer := make(tunebox.AudioBuffer, 4410)
	same, err := tunebox.Resample(buffer, 44100, 44100)
	if err != nil || len(same) != len(buffer) {
		t.Fatalf("passthrough failed: %v %v", len(same), err)
	}
	if _, err := tunebox.Resample(buffer, 0, 22050); err == nil {
		t.Fatal("zero rate should fail")
	}
}

func TestResampleHalfRate(t *testing.T) {
	const from, to = 44100, 22050
	buffer := make(tunebox.AudioBuffer, from)
	for i := range buffer {
		buffer[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/from))
	}
	out, err := tunebox.Resample(buffer, from, to)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(out) != to {
		t.Fatalf("length = %v, expected %v", len(out), to)
	}
	// skip the edges, where the filter ramps in and out
	if got, want := rms(out[to/10:to*9/10]), rms(buffer[from/10:from*9/10]); math.Abs(got-want) > 0.05*want {
		t.Errorf("rms = %v, expected about %v", got, want)
	}
	if tail := rms(out[to*8/10 : to*9/10]); tail < 0.3 {
		t.Errorf("rms near the end = %v, the signal is cut short", tail)
	}
}

func rms(b tunebox.AudioBuffer) float64 {
	sum := 0.0
	for _, v := range b {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(b)))
}
