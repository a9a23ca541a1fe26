package middleware

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/models"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LogSink is implemented by *repository.RequestLogRepository.
type LogSink interface {
	CreateBatch(ctx context.Context, logs []models.RequestLog) error
}

// RequestLogWriter buffers request logs and inserts them in batches off the request path.
type RequestLogWriter struct {
	sink       LogSink
	entries    chan models.RequestLog
	batchSize  int
	flushEvery time.Duration

	dropped  atomic.Int64
	dropWarn rate.Sometimes

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewRequestLogWriter(sink LogSink, bufferSize, batchSize int, flushEvery time.Duration) *RequestLogWriter {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushEvery <= 0 {
		flushEvery = 5 * time.Second
	}

	w := &RequestLogWriter{
		sink:       sink,
		entries:    make(chan models.RequestLog, bufferSize),
		batchSize:  batchSize,
		flushEvery: flushEvery,
		dropWarn:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *RequestLogWriter) run() {
	defer close(w.done)

	batch := make([]models.RequestLog, 0, w.batchSize)
	ticker := time.NewTicker(w.flushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.insertBatch(batch)
		batch = make([]models.RequestLog, 0, w.batchSize)
	}

	for {
		select {
		case entry := <-w.entries:
			batch = append(batch, entry)
			if len(batch) >= w.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.quit:
			for {
				select {
				case entry := <-w.entries:
					batch = append(batch, entry)
					if len(batch) >= w.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *RequestLogWriter) insertBatch(logs []models.RequestLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.sink.CreateBatch(ctx, logs); err != nil {
		log.Printf("Failed to insert %d request logs: %v", len(logs), err)
	}
}

// Enqueue never blocks. When the buffer is full the entry is dropped.
func (w *RequestLogWriter) Enqueue(entry models.RequestLog) bool {
	select {
	case w.entries <- entry:
		return true
	default:
		n := w.dropped.Add(1)
		w.dropWarn.Do(func() {
			log.Printf("Request log channel full, %d entries dropped so far", n)
		})
		return false
	}
}

// Dropped is the number of entries discarded because the buffer was full.
func (w *RequestLogWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Close flushes what is buffered and stops the worker.
func (w *RequestLogWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.quit)
	})
	<-w.done
	return nil
}

// RequestLogger records every request through w.
func RequestLogger(w *RequestLogWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)

		w.Enqueue(models.RequestLog{
			Timestamp:      start,
			RequestID:      c.GetString(RequestIDKey),
			Method:         c.Request.Method,
			Path:           c.Request.URL.Path,
			Route:          c.FullPath(),
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(duration.Milliseconds()),
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
			AdminSubject:   c.GetString(AdminSubjectKey),
		})
	}
}
