package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxInValues is the largest ID set accepted by GetIn.
const MaxInValues = 30

var (
	// ErrTooManyValues is returned by GetIn when the ID set exceeds MaxInValues.
	ErrTooManyValues = errors.New("docstore: too many values in 'in' filter")
	// ErrInvalidPath is returned for malformed collection paths or field names.
	ErrInvalidPath = errors.New("docstore: invalid path")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("docstore: store closed")
)

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Document is a stored JSON object with its store-managed metadata.
type Document struct {
	ID         string
	CreateTime time.Time
	UpdateTime time.Time
	raw        json.RawMessage
}

// DataTo decodes the document body into v.
func (d Document) DataTo(v any) error {
	return json.Unmarshal(d.raw, v)
}

// Data returns the document body as a generic map.
func (d Document) Data() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(d.raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Path joins collection path segments, e.g. Path("users", uid, "playlists").
// A collection path always has an odd number of segments, none empty.
func Path(segments ...string) (string, error) {
	if len(segments)%2 == 0 {
		return "", fmt.Errorf("%w: %d segments", ErrInvalidPath, len(segments))
	}
	for _, s := range segments {
		if s == "" || strings.Contains(s, "/") {
			return "", fmt.Errorf("%w: segment %q", ErrInvalidPath, s)
		}
	}
	return strings.Join(segments, "/"), nil
}

func validateCollection(collection string) error {
	if collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	_, err := Path(strings.Split(collection, "/")...)
	return err
}

func fieldPath(field string) (string, error) {
	if !fieldNameRe.MatchString(field) {
		return "", fmt.Errorf("%w: field %q", ErrInvalidPath, field)
	}
	return "$." + field, nil
}

// encodeObject marshals v and checks it is a JSON object.
func encodeObject(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("docstore: document must be a JSON object, got %T", v)
	}
	return data, nil
}
