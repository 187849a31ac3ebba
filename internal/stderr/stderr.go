//go:build !windows

// Package stderr captures output written straight to file descriptor 2 while
// the mini-player owns the terminal. ALSA and the log writer both end up
// there; captured lines are handed to the player as notices.
package stderr

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"syscall"
)

const lineBuffer = 100

// Capture is an active redirection of fd 2.
type Capture struct {
	orig  int
	r, w  *os.File
	lines chan string
	wg    sync.WaitGroup
	once  sync.Once
}

// Start redirects fd 2 into a pipe. The program keeps working when it
// fails; output just goes to the terminal.
func Start() (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	orig, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(orig)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{orig: orig, r: r, w: w, lines: make(chan string, lineBuffer)}
	c.wg.Add(1)
	go c.read()
	return c, nil
}

func (c *Capture) read() {
	defer c.wg.Done()
	defer close(c.lines)
	scanner := bufio.NewScanner(c.r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case c.lines <- line:
		default:
			// full; drop
		}
	}
}

// Lines delivers captured lines. It is closed by Stop.
func (c *Capture) Lines() <-chan string {
	return c.lines
}

// WriteOriginal writes to the terminal, bypassing the capture.
func (c *Capture) WriteOriginal(msg string) {
	_, _ = syscall.Write(c.orig, []byte(msg))
}

// Stop restores fd 2 and waits for the reader to finish.
func (c *Capture) Stop() {
	c.once.Do(func() {
		_ = syscall.Dup2(c.orig, int(os.Stderr.Fd()))
		_ = syscall.Close(c.orig)
		c.w.Close()
		c.wg.Wait()
		c.r.Close()
	})
}
