package logging

import (
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"
)

var (
	ErrWriterClosed = errors.New("logstash: writer closed")
	errSyncTimeout  = errors.New("logstash: sync timed out")
)

// LogstashWriter ships encoded zap entries to a Logstash TCP input from a
// background goroutine. Write never blocks: entries are queued and dropped
// when the queue is full or while Logstash is unreachable.
type LogstashWriter struct {
	addr          string
	dialTimeout   time.Duration
	writeTimeout  time.Duration
	retryInterval time.Duration
	queueSize     int

	queue   chan entry
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	dropped atomic.Int64
}

type entry struct {
	data    []byte
	flushed chan struct{}
}

type Option func(*LogstashWriter)

// WithDialTimeout overrides the TCP dial timeout. Defaults to 2 seconds.
func WithDialTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.dialTimeout = d }
}

// WithWriteTimeout overrides the per-entry write deadline. Defaults to 1 second.
func WithWriteTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.writeTimeout = d }
}

// WithRetryInterval sets how long to wait after a failed dial or write
// before dialing again. Defaults to 5 seconds.
func WithRetryInterval(d time.Duration) Option {
	return func(w *LogstashWriter) { w.retryInterval = d }
}

// WithQueueSize bounds the number of entries waiting to be sent. Defaults to 1024.
func WithQueueSize(n int) Option {
	return func(w *LogstashWriter) { w.queueSize = n }
}

func NewLogstashWriter(addr string, opts ...Option) (*LogstashWriter, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}
	w := &LogstashWriter{
		addr:          addr,
		dialTimeout:   2 * time.Second,
		writeTimeout:  time.Second,
		retryInterval: 5 * time.Second,
		queueSize:     1024,
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.queueSize <= 0 {
		w.queueSize = 1
	}
	w.queue = make(chan entry, w.queueSize)
	go w.run()
	return w, nil
}

// Write queues one encoded entry.
func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	select {
	case <-w.done:
		return 0, ErrWriterClosed
	default:
	}

	data := make([]byte, len(p), len(p)+1)
	copy(data, p)
	if data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	select {
	case w.queue <- entry{data: data}:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Sync waits until every entry queued before the call has been sent or
// dropped, bounded by the write timeout.
func (w *LogstashWriter) Sync() error {
	flushed := make(chan struct{})
	timeout := time.NewTimer(w.syncTimeout())
	defer timeout.Stop()

	select {
	case w.queue <- entry{flushed: flushed}:
	case <-w.done:
		return nil
	case <-timeout.C:
		return errSyncTimeout
	}
	select {
	case <-flushed:
		return nil
	case <-w.stopped:
		return nil
	case <-timeout.C:
		return errSyncTimeout
	}
}

// Dropped reports how many entries never reached Logstash.
func (w *LogstashWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Close stops the sender and closes the connection. Queued entries are
// discarded.
func (w *LogstashWriter) Close() error {
	w.once.Do(func() { close(w.done) })
	<-w.stopped
	return nil
}

func (w *LogstashWriter) syncTimeout() time.Duration {
	if w.writeTimeout <= 0 {
		return 2 * time.Second
	}
	return 2 * w.writeTimeout
}

func (w *LogstashWriter) run() {
	defer close(w.stopped)

	var conn net.Conn
	var nextDial time.Time
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	for {
		var e entry
		select {
		case <-w.done:
			return
		case e = <-w.queue:
		}
		if e.flushed != nil {
			close(e.flushed)
			continue
		}

		if conn == nil {
			if time.Now().Before(nextDial) {
				w.dropped.Add(1)
				continue
			}
			c, err := net.DialTimeout("tcp", w.addr, w.dialTimeout)
			if err != nil {
				nextDial = time.Now().Add(w.retryInterval)
				w.dropped.Add(1)
				continue
			}
			conn = c
		}

		if w.writeTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
		}
		if _, err := conn.Write(e.data); err != nil {
			_ = conn.Close()
			conn = nil
			nextDial = time.Now().Add(w.retryInterval)
			w.dropped.Add(1)
		}
	}
}

var _ zapcore.WriteSyncer = (*LogstashWriter)(nil)
