// Command feedwatch follows the live post feed. With more than one client it
// doubles as a connection load test.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type stats struct {
	attempted atomic.Int64
	connected atomic.Int64
	failed    atomic.Int64
	events    atomic.Int64
	errors    atomic.Int64
}

func (s *stats) report(w io.Writer) {
	fmt.Fprintf(w, "connections: %d attempted, %d open, %d failed\n",
		s.attempted.Load(), s.connected.Load(), s.failed.Load())
	fmt.Fprintf(w, "events: %d received, errors: %d\n", s.events.Load(), s.errors.Load())
}

// watcher talks to one API host on behalf of one signed-in user.
type watcher struct {
	base   string
	client *http.Client
	token  string
	stats  stats
	// onEvent, when set, sees every frame received.
	onEvent func(raw []byte)
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type feedEvent struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func main() {
	host := flag.String("host", "localhost:5000", "API server host")
	email := flag.String("email", "admin@inkwell.local", "account email")
	password := flag.String("password", "password123", "account password")
	clients := flag.Int("clients", 1, "concurrent feed connections")
	duration := flag.Duration("duration", 0, "stop after this long (0 = until interrupted)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	w := &watcher{base: "http://" + *host, client: &http.Client{Timeout: 5 * time.Second}}
	if err := w.login(ctx, *email, *password); err != nil {
		log.Fatalf("login failed: %v", err)
	}
	if *clients == 1 {
		w.onEvent = printEvent
	}
	log.Printf("signed in as %s, opening %d feed connection(s)", *email, *clients)

	w.run(ctx, *clients)
	w.stats.report(os.Stdout)
}

// run opens n connections, staggered so each spends its own ticket, and holds
// them until ctx ends.
func (w *watcher) run(ctx context.Context, n int) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.follow(ctx); err != nil {
				log.Printf("feed connection: %v", err)
			}
		}()
		select {
		case <-ctx.Done():
		case <-time.After(50 * time.Millisecond):
		}
	}
	wg.Wait()
}

// call POSTs body to path and decodes the envelope's data into out.
func (w *watcher) call(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: undecodable response (status %d): %w", path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, env.Message)
	}
	return json.Unmarshal(env.Data, out)
}

func (w *watcher) login(ctx context.Context, email, password string) error {
	var res struct {
		Token string `json:"token"`
	}
	if err := w.call(ctx, "/api/auth/login", map[string]string{"email": email, "password": password}, &res); err != nil {
		return err
	}
	if res.Token == "" {
		return errors.New("login response carried no token")
	}
	w.token = res.Token
	return nil
}

func (w *watcher) ticket(ctx context.Context) (string, error) {
	var res struct {
		Ticket string `json:"ticket"`
	}
	err := w.call(ctx, "/api/ws/ticket", nil, &res)
	return res.Ticket, err
}

func (w *watcher) feedURL(ticket string) string {
	u, _ := url.Parse(w.base)
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/api/ws"
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()
	return u.String()
}

// follow holds one feed connection open until ctx ends or the server hangs up.
func (w *watcher) follow(ctx context.Context) error {
	w.stats.attempted.Add(1)
	fail := func(err error) error {
		w.stats.failed.Add(1)
		w.stats.errors.Add(1)
		return err
	}

	ticket, err := w.ticket(ctx)
	if err != nil {
		return fail(fmt.Errorf("ticket: %w", err))
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, w.feedURL(ticket), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		return fail(fmt.Errorf("dial: %w", err))
	}
	defer func() { _ = conn.Close() }()
	w.stats.connected.Add(1)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					w.stats.errors.Add(1)
				}
				return
			}
			w.stats.events.Add(1)
			if w.onEvent != nil {
				w.onEvent(raw)
			}
		}
	}()

	select {
	case <-closed:
	case <-ctx.Done():
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-closed:
		case <-time.After(time.Second):
		}
	}
	return nil
}

func printEvent(raw []byte) {
	var ev feedEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		log.Printf("unparseable event: %s", raw)
		return
	}
	log.Printf("%s %-15s %s", ev.Timestamp.Format(time.TimeOnly), ev.Type, ev.Payload)
}
