package engine

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/jfreymuth/vorbis"
)

var errInvalidVorbisHeader = errors.New("vorbis: invalid identification header")

// vorbisHeaders is the number of header packets: identification, comment
// and setup.
const vorbisHeaders = 3

// vorbisDecoder implements beep.StreamSeekCloser for Ogg Vorbis streams.
type vorbisDecoder struct {
	src       io.ReadSeekCloser
	ogg       *oggReader
	dec       *vorbis.Decoder
	channels  int
	dataStart int64
	total     int64

	queue [][]byte  // packets not yet decoded
	pcm   []float32 // interleaved samples not yet streamed
	pos   int64
	err   error
}

// decodeVorbis reads the three Vorbis headers and the stream length.
func decodeVorbis(src io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	ogg := &oggReader{r: src}

	var headers [][]byte
	for len(headers) < vorbisHeaders {
		packets, _, err := ogg.next()
		if err != nil {
			return nil, beep.Format{}, err
		}
		headers = append(headers, packets...)
	}

	ident := headers[0]
	if len(ident) < 16 || ident[0] != 0x01 || string(ident[1:7]) != "vorbis" ||
		binary.LittleEndian.Uint32(ident[7:11]) != 0 {
		return nil, beep.Format{}, errInvalidVorbisHeader
	}
	channels := int(ident[11])
	sampleRate := int(binary.LittleEndian.Uint32(ident[12:16]))
	if channels == 0 || sampleRate == 0 {
		return nil, beep.Format{}, errInvalidVorbisHeader
	}

	dec := &vorbis.Decoder{}
	for _, h := range headers[:vorbisHeaders] {
		if err := dec.ReadHeader(h); err != nil {
			return nil, beep.Format{}, err
		}
	}

	// The setup header ends its page; audio starts on the next one.
	dataStart, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, beep.Format{}, err
	}
	total, err := ogg.lastGranule(dataStart)
	if err != nil {
		return nil, beep.Format{}, err
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: min(channels, 2),
		Precision:   2,
	}
	return &vorbisDecoder{
		src:       src,
		ogg:       ogg,
		dec:       dec,
		channels:  channels,
		dataStart: dataStart,
		total:     total,
	}, format, nil
}

func (d *vorbisDecoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}
	for n < len(samples) {
		if len(d.pcm) >= d.channels {
			samples[n][0] = float64(d.pcm[0])
			if d.channels > 1 {
				samples[n][1] = float64(d.pcm[1])
			} else {
				samples[n][1] = samples[n][0]
			}
			d.pcm = d.pcm[d.channels:]
			d.pos++
			n++
			continue
		}

		if len(d.queue) == 0 {
			packets, _, err := d.ogg.next()
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
					d.err = err
				}
				return n, n > 0
			}
			d.queue = packets
			continue
		}

		packet := d.queue[0]
		d.queue = d.queue[1:]
		pcm, err := d.dec.Decode(packet)
		if err != nil {
			continue // skip corrupt packets
		}
		d.pcm = pcm
	}
	return n, true
}

func (d *vorbisDecoder) Err() error { return d.err }

func (d *vorbisDecoder) Len() int { return int(d.total) }

func (d *vorbisDecoder) Position() int { return int(d.pos) }

// Seek jumps to the page holding sample p and decodes forward to it.
func (d *vorbisDecoder) Seek(p int) error {
	target := min(max(int64(p), 0), d.total)

	offset, start, err := d.ogg.pageBefore(d.dataStart, target)
	if err != nil {
		return err
	}
	if err := d.ogg.seek(offset); err != nil {
		return err
	}
	d.dec.Clear()
	d.queue = nil
	d.pcm = nil
	d.pos = start
	d.err = nil

	discard := make([][2]float64, 512)
	for d.pos < target {
		n, ok := d.Stream(discard[:min(int64(len(discard)), target-d.pos)])
		if !ok || n == 0 {
			break
		}
	}
	d.pos = target
	return d.err
}

func (d *vorbisDecoder) Close() error {
	return d.src.Close()
}
