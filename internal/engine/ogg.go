package engine

import (
	"encoding/binary"
	"errors"
	"io"
)

var (
	errInvalidOggMagic   = errors.New("ogg: invalid capture pattern")
	errInvalidOggVersion = errors.New("ogg: unsupported version")
)

const (
	oggHeaderSize   = 27
	oggContinued    = 0x01 // header type flag: first packet continues the previous page
	oggLacingFull   = 255
	oggNoGranule    = -1
	oggCapture      = "OggS"
	oggVersionIndex = 4
)

// oggPage is one parsed Ogg page. Packets are split on lacing values below
// 255; the first piece may continue a packet from the previous page and the
// last one may continue on the next.
type oggPage struct {
	granule   int64
	continued bool
	open      bool
	pieces    [][]byte
}

// readOggPage reads the page starting at the current offset of r.
func readOggPage(r io.Reader) (*oggPage, error) {
	var hdr [oggHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != oggCapture {
		return nil, errInvalidOggMagic
	}
	if hdr[oggVersionIndex] != 0 {
		return nil, errInvalidOggVersion
	}

	page := &oggPage{
		granule:   int64(binary.LittleEndian.Uint64(hdr[6:14])),
		continued: hdr[5]&oggContinued != 0,
	}

	lacing := make([]byte, hdr[26])
	if _, err := io.ReadFull(r, lacing); err != nil {
		return nil, err
	}
	size := 0
	for _, l := range lacing {
		size += int(l)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	start, off := 0, 0
	for i, l := range lacing {
		off += int(l)
		if l < oggLacingFull {
			page.pieces = append(page.pieces, body[start:off])
			start = off
			continue
		}
		if i == len(lacing)-1 {
			page.pieces = append(page.pieces, body[start:off])
			page.open = true
		}
	}
	return page, nil
}

// oggReader assembles packets across pages of one logical stream.
type oggReader struct {
	r       io.ReadSeeker
	pending []byte // packet started on an earlier page
}

// next reads one page and returns the packets completed on it with the
// page granule position. After a seek, fragments of packets whose start
// was skipped are dropped.
func (o *oggReader) next() ([][]byte, int64, error) {
	page, err := readOggPage(o.r)
	if err != nil {
		return nil, 0, err
	}
	pieces := page.pieces
	if page.continued && len(pieces) > 0 {
		if o.pending != nil {
			pieces[0] = append(o.pending, pieces[0]...)
		} else {
			pieces = pieces[1:]
		}
	}
	o.pending = nil
	if page.open && len(pieces) > 0 {
		o.pending = pieces[len(pieces)-1]
		pieces = pieces[:len(pieces)-1]
	}
	return pieces, page.granule, nil
}

// seek moves to an absolute offset that starts a page.
func (o *oggReader) seek(offset int64) error {
	o.pending = nil
	_, err := o.r.Seek(offset, io.SeekStart)
	return err
}

// lastGranule scans the pages from offset to the end and returns the
// highest granule position, leaving the reader at offset.
func (o *oggReader) lastGranule(offset int64) (int64, error) {
	if err := o.seek(offset); err != nil {
		return 0, err
	}
	last := int64(0)
	for {
		page, err := readOggPage(o.r)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if page.granule != oggNoGranule && page.granule > last {
			last = page.granule
		}
	}
	return last, o.seek(offset)
}

// pageBefore returns the offset of the page holding sample target and the
// granule position at which that page's audio begins.
func (o *oggReader) pageBefore(dataStart, target int64) (offset, startGranule int64, err error) {
	if err := o.seek(dataStart); err != nil {
		return 0, 0, err
	}
	offset = dataStart
	for {
		at, err := o.r.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, 0, err
		}
		page, err := readOggPage(o.r)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return offset, startGranule, nil
		}
		if err != nil {
			return 0, 0, err
		}
		if page.granule == oggNoGranule {
			continue
		}
		if page.granule >= target {
			return at, startGranule, nil
		}
		offset = at
		startGranule = page.granule
	}
}
