// Package serial reads test output from a board's UART.
package serial

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// ErrClosed is returned by ReadLines when the transport is closed under it.
var ErrClosed = errors.New("serial transport closed")

// Options configures a Transport.
type Options struct {
	// Sentinel ends a transmission once a received line contains it.
	Sentinel string
	// ReadTimeout bounds each read so cancellation is observed.
	ReadTimeout time.Duration
	Logger      *zap.Logger
}

// Transport is a line-oriented view of a serial port.
type Transport struct {
	port     io.ReadWriteCloser
	path     string
	sentinel string
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Open opens the serial device at path with 8N1 framing.
func Open(path string, baudRate int, opts Options) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s at %d baud", path, baudRate)
	}

	t := New(port, opts)
	t.path = path
	return t, nil
}

// New wraps an already open port. Ports that support read timeouts get
// opts.ReadTimeout applied.
func New(port io.ReadWriteCloser, opts Options) *Transport {
	if opts.Sentinel == "" {
		opts.Sentinel = "&"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if p, ok := port.(interface{ SetReadTimeout(time.Duration) error }); ok {
		if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
			opts.Logger.Warn("set read timeout", zap.Error(err))
		}
	}
	return &Transport{port: port, sentinel: opts.Sentinel, logger: opts.Logger}
}

// Path returns the device path, empty for wrapped ports.
func (t *Transport) Path() string { return t.path }

// Reset discards bytes received but not yet read, when the port allows it.
func (t *Transport) Reset() error {
	if p, ok := t.port.(interface{ ResetInputBuffer() error }); ok {
		return p.ResetInputBuffer()
	}
	return nil
}

// ReadLines pushes every received line to out until a line containing the
// sentinel has been pushed. It returns nil on the sentinel, ctx.Err() when
// ctx ends first and the read error otherwise.
func (t *Transport) ReadLines(ctx context.Context, out chan<- string) error {
	var pending bytes.Buffer
	buf := make([]byte, 1024)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			pending.Write(buf[:n])
			done, perr := t.flushLines(ctx, &pending, out)
			if done || perr != nil {
				return perr
			}
		} else if err == nil && pending.Len() > 0 {
			// An idle read ends a partial line holding the sentinel.
			done, perr := t.flushPartial(ctx, &pending, out)
			if done || perr != nil {
				return perr
			}
		}
		if err != nil {
			if t.isClosed() {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrClosed
			}
			return errors.Wrap(err, "serial read")
		}
	}
}

// flushLines sends each complete line held in pending. It reports whether
// the sentinel line was among them.
func (t *Transport) flushLines(ctx context.Context, pending *bytes.Buffer, out chan<- string) (bool, error) {
	for {
		idx := bytes.IndexByte(pending.Bytes(), '\n')
		if idx < 0 {
			return false, nil
		}
		line := strings.TrimRight(string(pending.Next(idx+1)), "\r\n")

		select {
		case out <- line:
		case <-ctx.Done():
			return false, ctx.Err()
		}

		if strings.Contains(line, t.sentinel) {
			t.logger.Debug("sentinel received", zap.String("line", line))
			return true, nil
		}
	}
}

// flushPartial sends pending as the final line when it holds the sentinel.
func (t *Transport) flushPartial(ctx context.Context, pending *bytes.Buffer, out chan<- string) (bool, error) {
	if !bytes.Contains(pending.Bytes(), []byte(t.sentinel)) {
		return false, nil
	}
	line := strings.TrimRight(pending.String(), "\r\n")
	pending.Reset()

	select {
	case out <- line:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	t.logger.Debug("sentinel received without newline", zap.String("line", line))
	return true, nil
}

// Close releases the port. A blocked ReadLines returns once the port is
// closed. Close is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.port.Close()
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
