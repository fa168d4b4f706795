// Package scrape runs an interactive command inside a pseudo-terminal and
// captures what it renders.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

// ErrNoOutput is returned when the child exits before rendering anything.
var ErrNoOutput = errors.New("terminal session ended without output")

// Options controls one capture. Zero durations fall back to DefaultOptions.
type Options struct {
	Command     string
	Args        []string
	Rows        uint16
	Cols        uint16
	Settle      time.Duration // wait before the first read
	FirstRead   time.Duration // budget for the first chunk after settling
	ReadTimeout time.Duration // idle gap that ends the drain
	ExitWait    time.Duration // grace period after the cancel keys
	Timeout     time.Duration // bound on the whole capture
}

func DefaultOptions() Options {
	return Options{
		Command:     "claude",
		Args:        []string{"/usage"},
		Rows:        40,
		Cols:        120,
		Settle:      3 * time.Second,
		FirstRead:   5 * time.Second,
		ReadTimeout: time.Second,
		ExitWait:    3 * time.Second,
		Timeout:     30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Command == "" {
		o.Command, o.Args = d.Command, d.Args
	}
	if o.Rows == 0 {
		o.Rows = d.Rows
	}
	if o.Cols == 0 {
		o.Cols = d.Cols
	}
	if o.Settle == 0 {
		o.Settle = d.Settle
	}
	if o.FirstRead == 0 {
		o.FirstRead = d.FirstRead
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = d.ReadTimeout
	}
	if o.ExitWait == 0 {
		o.ExitWait = d.ExitWait
	}
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
	return o
}

type session struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	chunks chan []byte
	exited chan error
	done   chan struct{}
}

// Run spawns the command, lets it render, drains the screen and then asks
// it to quit. The child is reaped and the pty closed on every return path.
func Run(ctx context.Context, opts Options) (string, error) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.Command(opts.Command, opts.Args...)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: opts.Rows, Cols: opts.Cols})
	if err != nil {
		return "", fmt.Errorf("spawn %s: %w", opts.Command, err)
	}

	s := &session{
		cmd:    cmd,
		ptmx:   ptmx,
		chunks: make(chan []byte, 64),
		exited: make(chan error, 1),
		done:   make(chan struct{}),
	}
	go s.pump()
	go func() { s.exited <- cmd.Wait() }()
	defer s.shutdown(opts.ExitWait)

	select {
	case <-time.After(opts.Settle):
	case <-ctx.Done():
		return "", fmt.Errorf("timeout waiting for %s: %w", opts.Command, ctx.Err())
	}

	out, err := s.drain(ctx, opts.FirstRead, opts.ReadTimeout)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", opts.Command, err)
	}
	return out, nil
}

// pump copies pty output into chunks until the pty is closed or the child
// goes away.
func (s *session) pump() {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *session) drain(ctx context.Context, first, idle time.Duration) (string, error) {
	var out strings.Builder
	wait := first
	for {
		timer := time.NewTimer(wait)
		select {
		case chunk, ok := <-s.chunks:
			timer.Stop()
			if !ok {
				if out.Len() == 0 {
					return "", ErrNoOutput
				}
				return out.String(), nil
			}
			out.Write(chunk)
			wait = idle
		case <-timer.C:
			if out.Len() == 0 {
				return "", ErrNoOutput
			}
			return out.String(), nil
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}
}

// shutdown sends ESC, ESC, q, Ctrl-C and waits for the child; a child that
// ignores all of them is killed.
func (s *session) shutdown(grace time.Duration) {
	defer s.ptmx.Close()
	defer close(s.done)

	select {
	case <-s.exited:
		return
	default:
	}

	s.ptmx.Write([]byte{0x1b})
	time.Sleep(500 * time.Millisecond)
	s.ptmx.Write([]byte{0x1b})
	s.ptmx.Write([]byte("q"))
	s.ptmx.Write([]byte{0x03})

	select {
	case <-s.exited:
	case <-time.After(grace):
		s.cmd.Process.Kill()
		<-s.exited
	}
}
