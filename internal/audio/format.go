package audio

// Format describes the linear PCM layout of a capture session. It is fixed
// once a session starts; every chunk boundary computation derives from it.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat matches the format the streaming backend expects:
// mono 8-bit linear PCM at 8 kHz.
var DefaultFormat = Format{
	SampleRate: 8000,
	Channels:   1,
	BitDepth:   8,
}

// BytesPerSecond is the raw PCM data rate for this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// BlockAlign is the byte size of one sample frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitDepth / 8
}
