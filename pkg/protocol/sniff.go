package protocol

import "bytes"

// Format identifies an audio container/codec detected from leading bytes.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatOgg     Format = "ogg"
	FormatMP3     Format = "mp3"
	FormatWebM    Format = "webm"
	FormatMP4     Format = "mp4"
	FormatFLAC    Format = "flac"
	FormatUnknown Format = "unknown"
)

// Magic-number signatures for common audio containers.
var (
	magicRIFF = []byte("RIFF")
	magicWAVE = []byte("WAVE")
	magicOggS = []byte("OggS")
	magicID3  = []byte("ID3")
	magicEBML = []byte{0x1A, 0x45, 0xDF, 0xA3}
	magicFtyp = []byte("ftyp")
	magicFLAC = []byte("fLaC")
)

// DetectFormat inspects the first bytes of an audio buffer against known
// container signatures. It is used for diagnostic mismatch detection only;
// audio is relayed unmodified regardless of the result.
func DetectFormat(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	switch {
	case bytes.HasPrefix(data, magicRIFF):
		if len(data) >= 12 && bytes.Equal(data[8:12], magicWAVE) {
			return FormatWAV
		}
		return FormatUnknown
	case bytes.HasPrefix(data, magicOggS):
		return FormatOgg
	case bytes.HasPrefix(data, magicID3):
		return FormatMP3
	case bytes.HasPrefix(data, magicEBML):
		return FormatWebM
	case bytes.HasPrefix(data, magicFLAC):
		return FormatFLAC
	case len(data) >= 12 && bytes.Equal(data[4:8], magicFtyp):
		return FormatMP4
	case data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync: 11 set bits
		return FormatMP3
	}

	return FormatUnknown
}

// MatchesFormat reports whether the buffer's detected container agrees with
// the declared format. Unknown detections are treated as a match since many
// raw codecs (e.g. PCM) carry no signature.
func MatchesFormat(data []byte, declared Format) bool {
	detected := DetectFormat(data)
	if detected == FormatUnknown {
		return true
	}
	return detected == declared
}
