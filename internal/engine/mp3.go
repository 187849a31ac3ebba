package engine

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/go-mp3"
)

// mp3Decoder wraps llehouerou/go-mp3 to implement beep.StreamSeekCloser.
type mp3Decoder struct {
	decoder *mp3.Decoder
	closer  io.Closer
	format  beep.Format
	err     error
	readBuf []byte
}

// decodeMP3 decodes MP3 data. The source should be seekable for Seek to work.
func decodeMP3(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	decoder, err := mp3.NewDecoder(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}

	sampleRate := decoder.SampleRate()
	if sampleRate == 0 {
		return nil, beep.Format{}, errors.New("mp3: invalid sample rate")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2, // go-mp3 always outputs stereo
		Precision:   2,
	}

	return &mp3Decoder{
		decoder: decoder,
		closer:  rc,
		format:  format,
		readBuf: make([]byte, 8192),
	}, format, nil
}

func (d *mp3Decoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}

	// 4 bytes per stereo 16-bit sample
	need := len(samples) * 4
	if len(d.readBuf) < need {
		d.readBuf = make([]byte, need)
	}

	read, err := io.ReadFull(d.decoder, d.readBuf[:need])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		d.err = err
		return 0, false
	}

	frames := read / 4
	if frames == 0 {
		return 0, false
	}

	for i := 0; i < frames && i < len(samples); i++ {
		off := i * 4
		left := int16(binary.LittleEndian.Uint16(d.readBuf[off:]))    //nolint:gosec // audio samples
		right := int16(binary.LittleEndian.Uint16(d.readBuf[off+2:])) //nolint:gosec // audio samples
		samples[i][0] = float64(left) / 32768.0
		samples[i][1] = float64(right) / 32768.0
		n++
	}
	return n, true
}

func (d *mp3Decoder) Err() error {
	return d.err
}

func (d *mp3Decoder) Len() int {
	count := d.decoder.SampleCount()
	if count < 0 {
		return 0
	}
	return int(count)
}

func (d *mp3Decoder) Position() int {
	return int(d.decoder.SamplePosition())
}

func (d *mp3Decoder) Seek(p int) error {
	p = max(0, min(p, d.Len()))
	if err := d.decoder.SeekToSample(int64(p)); err != nil {
		return err
	}
	d.err = nil
	return nil
}

func (d *mp3Decoder) Close() error {
	return d.closer.Close()
}
