package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/hoangnguyen2809/chat-relay/internal/chat"
)

var (
	addr = flag.String("addr", "localhost:8080", "http service address")
	room = flag.String("room", "lobby", "room to join")
	name = flag.String("name", "guest", "display name")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/chat/" + *room}
	log.Printf("connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	hello, err := json.Marshal(request{Type: chat.TypeJoin, Name: *name})
	if err != nil {
		log.Fatal("join:", err)
	}
	if err := c.WriteMessage(websocket.TextMessage, hello); err != nil {
		log.Fatal("join:", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	lines := make(chan string)
	go scanLines(gctx, os.Stdin, lines)
	g.Go(func() error { return readLoop(c, os.Stdout) })
	g.Go(func() error { return writeLoop(gctx, c, lines) })

	wait := make(chan error, 1)
	go func() { wait <- g.Wait() }()

	<-gctx.Done()
	if ctx.Err() != nil {
		log.Println("interrupt")
		// WriteControl may run alongside writeLoop's WriteMessage.
		err := c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		if err != nil {
			log.Println("write close:", err)
		}
	}

	select {
	case err = <-wait:
	case <-time.After(time.Second):
		_ = c.Close()
		err = <-wait
	}
	var closeErr *websocket.CloseError
	if err != nil && !(errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure) {
		log.Println(err)
	}
}

// readLoop prints every server frame until the connection fails.
func readLoop(c *websocket.Conn, out io.Writer) error {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Fprintln(out, formatFrame(data))
	}
}

// scanLines feeds non-empty input lines to lines and closes it at EOF.
func scanLines(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case lines <- line:
		case <-ctx.Done():
			return
		}
	}
}

// writeLoop turns each input line into a request until ctx is done or
// input ends.
func writeLoop(ctx context.Context, c *websocket.Conn, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			data, err := encodeLine(line)
			if err != nil {
				return err
			}
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

type request struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// encodeLine builds the request for a line of input.
func encodeLine(line string) ([]byte, error) {
	var req request
	switch {
	case line == "/joke":
		req = request{Type: chat.TypeJoke}
	case line == "/members":
		req = request{Type: chat.TypeMembers}
	default:
		req = request{Type: chat.TypeChat, Text: line}
	}
	return json.Marshal(req)
}

type frame struct {
	Type string          `json:"type"`
	Name *string         `json:"name"`
	Text json.RawMessage `json:"text"`
}

// formatFrame renders a server frame as "name: text", or "* text" for notes.
func formatFrame(data []byte) string {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return string(data)
	}

	var text string
	if err := json.Unmarshal(f.Text, &text); err != nil {
		var names []*string
		if err := json.Unmarshal(f.Text, &names); err != nil {
			return string(data)
		}
		parts := make([]string, 0, len(names))
		for _, n := range names {
			if n == nil {
				parts = append(parts, "(unnamed)")
				continue
			}
			parts = append(parts, *n)
		}
		text = strings.Join(parts, ", ")
	}

	if f.Type == chat.TypeNote {
		return "* " + text
	}
	who := "?"
	if f.Name != nil {
		who = *f.Name
	}
	return who + ": " + text
}
