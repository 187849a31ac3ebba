package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/wav"
)

type codec int

const (
	codecUnknown codec = iota
	codecMP3
	codecFLAC
	codecWAV
	codecVorbis
)

func (c codec) String() string {
	switch c {
	case codecMP3:
		return "mp3"
	case codecFLAC:
		return "flac"
	case codecWAV:
		return "wav"
	case codecVorbis:
		return "vorbis"
	default:
		return "unknown"
	}
}

// ErrUnsupportedFormat is returned for streams that are not MP3, FLAC, WAV
// or Ogg Vorbis.
var ErrUnsupportedFormat = errors.New("engine: unsupported audio format")

// ErrStreamTooLarge is returned when a stream exceeds the download cap.
var ErrStreamTooLarge = errors.New("engine: stream too large")

// detectCodec picks a decoder from the URL extension, then the content type.
func detectCodec(rawURL, contentType string) codec {
	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".mp3":
			return codecMP3
		case ".flac":
			return codecFLAC
		case ".wav":
			return codecWAV
		case ".ogg", ".oga":
			return codecVorbis
		}
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return codecUnknown
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return codecMP3
	case "audio/flac", "audio/x-flac":
		return codecFLAC
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return codecWAV
	case "audio/ogg", "audio/vorbis", "application/ogg":
		return codecVorbis
	}
	return codecUnknown
}

// memStream is an in-memory, seekable stream body.
type memStream struct {
	*bytes.Reader
}

func (memStream) Close() error { return nil }

// fetch downloads rawURL into memory, refusing bodies larger than maxBytes.
func fetch(ctx context.Context, client *http.Client, rawURL string, maxBytes int64) (memStream, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return memStream{}, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return memStream{}, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return memStream{}, "", fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
	}
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return memStream{}, "", ErrStreamTooLarge
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return memStream{}, "", err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return memStream{}, "", ErrStreamTooLarge
	}
	return memStream{bytes.NewReader(data)}, resp.Header.Get("Content-Type"), nil
}

// decode builds a beep streamer for src.
func decode(c codec, src memStream) (beep.StreamSeekCloser, beep.Format, error) {
	switch c {
	case codecMP3:
		return decodeMP3(src)
	case codecFLAC:
		// Some taggers prepend ID3v2 to FLAC, which the decoder rejects.
		if err := skipID3v2(src); err != nil {
			return nil, beep.Format{}, err
		}
		return flac.Decode(src)
	case codecWAV:
		return wav.Decode(src)
	case codecVorbis:
		return decodeVorbis(src)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of r.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// Syncsafe size: 7 bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}
