package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of a canonical RIFF/WAVE header with a single
// "fmt " and "data" subchunk.
const HeaderSize = 44

// PlaceholderDataLength is the declared data size written into the header of
// the first streamed chunk. The true stream length is unknowable while the
// recording is still being written, so the header declares a large value and
// the receiver must tolerate fewer bytes actually arriving.
const PlaceholderDataLength = 0xFFFFFF

// WAVHeader mirrors the 44-byte canonical WAV header layout.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // data length + 36
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // data length
}

// EncodeHeader builds a WAV header declaring dataLength bytes of PCM in the
// given format.
func EncodeHeader(format Format, dataLength int) []byte {
	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(dataLength + 36),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(format.Channels),
		SampleRate:    uint32(format.SampleRate),
		ByteRate:      uint32(format.BytesPerSecond()),
		BlockAlign:    uint16(format.BlockAlign()),
		BitsPerSample: uint16(format.BitDepth),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataLength),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	// Writing a fixed-width struct to an in-memory buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, header)
	return buf.Bytes()
}

// SynthesizeStreamHeader builds the header prepended to the first chunk of a
// live stream. All fields are derived from the fixed capture format except
// the data length, which is the oversized placeholder.
func SynthesizeStreamHeader(format Format) []byte {
	return EncodeHeader(format, PlaceholderDataLength)
}

// ParseHeader decodes and validates a WAV header.
func ParseHeader(data []byte) (*WAVHeader, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV header: missing RIFF chunk")
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV header: missing WAVE format")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, fmt.Errorf("invalid WAV header: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("invalid WAV header: missing data chunk")
	}
	if header.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}
	return &header, nil
}
