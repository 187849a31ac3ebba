//go:build windows

// Package stderr provides a no-op capture for Windows, where the audio
// backend does not write to the console.
package stderr

import (
	"os"
	"sync"
)

// Capture is a no-op on Windows.
type Capture struct {
	lines chan string
	once  sync.Once
}

// Start returns a capture whose Lines channel never delivers.
func Start() (*Capture, error) {
	return &Capture{lines: make(chan string)}, nil
}

// Lines never delivers on Windows until Stop.
func (c *Capture) Lines() <-chan string {
	return c.lines
}

// WriteOriginal writes to stderr.
func (c *Capture) WriteOriginal(msg string) {
	_, _ = os.Stderr.WriteString(msg)
}

// Stop closes Lines.
func (c *Capture) Stop() {
	c.once.Do(func() { close(c.lines) })
}
