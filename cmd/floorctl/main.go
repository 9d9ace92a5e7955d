// Floorctl talks to a running floor dashboard over its websocket.
//
//	floorctl queue    # queue an action (the operator key press)
//	floorctl end      # end the running action
//	floorctl ping     # measure round-trip latency
//	floorctl watch    # print state changes until interrupted
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	flog "github.com/teslashibe/go-floor/internal/log"
	"github.com/teslashibe/go-floor/pkg/protocol"
	"github.com/teslashibe/go-floor/pkg/remote"
)

func main() {
	_ = godotenv.Load()

	url := flag.String("url", envOr("FLOOR_URL", "ws://localhost:8181/ws/status"), "Dashboard websocket URL")
	timeout := flag.Duration("timeout", 5*time.Second, "How long to wait for a reply")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := "warn"
	if *debug {
		level = "debug"
	}
	flog.Init(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, flag.Arg(0), *url, *timeout, os.Stdout); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// run executes one command against the dashboard at url.
func run(ctx context.Context, cmd, url string, timeout time.Duration, out io.Writer) error {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	c, err := remote.Dial(dialCtx, url, flog.L())
	if err != nil {
		return err
	}
	defer c.Close()

	if cmd == "watch" {
		return watch(ctx, c, out)
	}

	replyCtx, stop := context.WithTimeout(ctx, timeout)
	defer stop()
	replied := make(chan struct{})

	var send func() error
	switch cmd {
	case "queue", "end":
		c.OnAck = func(a *protocol.AckData) {
			if a.OK {
				fmt.Fprintf(out, "%s: ok\n", a.Command)
			} else {
				fmt.Fprintf(out, "%s: %s\n", a.Command, a.Error)
			}
			close(replied)
		}
		send = c.Queue
		if cmd == "end" {
			send = c.End
		}
	case "ping":
		c.OnPong = func(p *protocol.PongData) {
			fmt.Fprintf(out, "pong %s: %dms\n", p.ID, p.LatencyMs)
			close(replied)
		}
		send = func() error { return c.Ping(fmt.Sprintf("floorctl-%d", time.Now().UnixNano())) }
	default:
		return fmt.Errorf("unknown command %q (want queue, end, ping or watch)", cmd)
	}

	go c.Run(replyCtx)
	if err := send(); err != nil {
		return err
	}
	select {
	case <-replied:
		return nil
	case <-replyCtx.Done():
		return errors.New("no reply from dashboard")
	}
}

// watch prints the current state, then every transition until ctx is done.
func watch(ctx context.Context, c *remote.Client, out io.Writer) error {
	first := true
	c.OnSnapshot = func(s *protocol.SnapshotData) {
		if first {
			first = false
			fmt.Fprintf(out, "%s [%s] state=%q queued=%v running=%v\n",
				s.ControllerID, s.Variant, s.State, s.ActionQueued, s.ActionRunning)
		}
	}
	c.OnTransition = func(tr *protocol.TransitionData) {
		at := time.UnixMilli(tr.At).Format("15:04:05.000")
		fmt.Fprintf(out, "%s #%d %q -> %q (%s)\n", at, tr.Tick, tr.From, tr.To, tr.Rule)
	}
	return c.Run(ctx)
}
