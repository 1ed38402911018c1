package transcriber

import (
	"bytes"
	"encoding/binary"
)

// wavHeader is the canonical 44-byte RIFF header for uncompressed PCM.
type wavHeader struct {
	Riff          [4]byte
	FileSize      uint32
	Wave          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// encodeWAV wraps 16-bit mono PCM for batch endpoints that expect a file.
func encodeWAV(pcm []byte, sampleRate int) []byte {
	const channels, bits = 1, 16
	block := channels * bits / 8

	h := wavHeader{
		Riff:          [4]byte{'R', 'I', 'F', 'F'},
		FileSize:      uint32(36 + len(pcm)),
		Wave:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		Channels:      channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * block),
		BlockAlign:    uint16(block),
		BitsPerSample: bits,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(pcm)),
	}

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	binary.Write(&buf, binary.LittleEndian, h)
	buf.Write(pcm)
	return buf.Bytes()
}
