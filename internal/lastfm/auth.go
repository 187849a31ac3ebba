package lastfm

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"
)

// DefaultCallbackAddr is where the callback server listens when no address
// is given. The Last.fm application must allow this callback host.
const DefaultCallbackAddr = "localhost:9847"

var (
	// ErrAuthTimeout is returned by Callback.Wait when no redirect arrived in time.
	ErrAuthTimeout = errors.New("no authorization received from Last.fm")
	// ErrAuthDenied is returned when Last.fm redirected without a token.
	ErrAuthDenied = errors.New("authorization was not granted on Last.fm")
)

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>soundshow - Last.fm</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1>{{.Heading}}</h1>
<p>{{.Message}}</p>
</body>
</html>`))

// Callback is a one-shot local HTTP server receiving the token Last.fm
// appends to the redirect once the user authorizes soundshow.
type Callback struct {
	srv    *http.Server
	ln     net.Listener
	tokens chan string
	served chan struct{}
}

// ListenCallback starts the callback server on addr, or DefaultCallbackAddr
// when addr is empty. Close it once the flow is over.
func ListenCallback(addr string) (*Callback, error) {
	if addr == "" {
		addr = DefaultCallbackAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for Last.fm callback on %s: %w", addr, err)
	}

	c := &Callback{
		ln:     ln,
		tokens: make(chan string, 1),
		served: make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", c.handle)
	c.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		defer close(c.served)
		_ = c.srv.Serve(ln)
	}()
	return c, nil
}

// URL is the callback to hand to Client.GetAuthURL.
func (c *Callback) URL() string {
	return "http://" + c.ln.Addr().String() + "/callback"
}

func (c *Callback) handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	page := struct{ Heading, Message string }{
		Heading: "Last.fm account linked",
		Message: "You can close this window and go back to soundshow.",
	}
	if token == "" {
		page.Heading = "Authorization failed"
		page.Message = "Last.fm did not send a token. Run soundshow lastfm-auth again."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = callbackPage.Execute(w, page)

	// Only the first redirect counts.
	select {
	case c.tokens <- token:
	default:
	}
}

// Wait returns the token from the first redirect. It fails with
// ErrAuthDenied for a redirect without a token, ErrAuthTimeout once timeout
// elapses, or the context error.
func (c *Callback) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	return waitToken(ctx, c.tokens, timeout)
}

func waitToken(ctx context.Context, tokens <-chan string, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case token := <-tokens:
		if token == "" {
			return "", ErrAuthDenied
		}
		return token, nil
	case <-timer.C:
		return "", ErrAuthTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the server and waits for it to exit.
func (c *Callback) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.srv.Shutdown(ctx)
	<-c.served
	return err
}

// OpenBrowser opens url in the desktop's default browser.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}

func browserCommand(platform, url string) (string, []string, error) {
	switch platform {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "cmd", []string{"/c", "start", url}, nil
	default:
		return "", nil, fmt.Errorf("open browser: unsupported platform %s", platform)
	}
}
