package protocol

import "testing"

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"wav", append([]byte("RIFF\x24\x08\x00\x00"), []byte("WAVE")...), FormatWAV},
		{"riff without wave", []byte("RIFF\x24\x08\x00\x00AVI "), FormatUnknown},
		{"ogg", []byte("OggS\x00\x02\x00\x00"), FormatOgg},
		{"mp3 id3", []byte("ID3\x04\x00\x00\x00"), FormatMP3},
		{"mp3 frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, FormatMP3},
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42}, FormatWebM},
		{"mp4", []byte("\x00\x00\x00\x20ftypisom"), FormatMP4},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), FormatFLAC},
		{"too short", []byte{0xFF}, FormatUnknown},
		{"pcm-ish noise", []byte{0x01, 0x02, 0x03, 0x04}, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.want {
				t.Errorf("DetectFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesFormat(t *testing.T) {
	mp3 := []byte{0xFF, 0xFB, 0x90, 0x00}
	if !MatchesFormat(mp3, FormatMP3) {
		t.Error("mp3 frame should match declared mp3")
	}
	if MatchesFormat(mp3, FormatWAV) {
		t.Error("mp3 frame should not match declared wav")
	}
	// Signature-less data matches anything.
	if !MatchesFormat([]byte{0x01, 0x02, 0x03, 0x04}, FormatWAV) {
		t.Error("unknown detection should be treated as a match")
	}
}
