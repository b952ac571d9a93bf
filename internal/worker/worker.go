package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"moneta/internal/importer"
	"moneta/internal/logger"
)

// ErrBusy is returned by Submit while a job is running. The worker keeps no
// queue; callers serialize or retry.
var ErrBusy = errors.New("worker is busy")

// ParseFunc is the parsing step a worker runs for each job.
type ParseFunc func(format importer.Format, data []byte, opts importer.Options) ([]importer.Row, error)

// DefaultOutbox is the outbox capacity used when none is given.
const DefaultOutbox = 16

// Worker runs one job at a time on its own goroutine.
type Worker struct {
	parse  ParseFunc
	inbox  chan Request
	outbox chan Message
	busy   atomic.Bool
}

// New creates a stopped worker. A nil parse uses importer.Parse.
func New(parse ParseFunc, outbox int) *Worker {
	if parse == nil {
		parse = importer.Parse
	}
	if outbox < 1 {
		outbox = DefaultOutbox
	}
	return &Worker{
		parse:  parse,
		inbox:  make(chan Request, 1),
		outbox: make(chan Message, outbox),
	}
}

// Messages is the worker's outbox. It is closed when the worker stops.
func (w *Worker) Messages() <-chan Message {
	return w.outbox
}

// Start launches the worker loop and announces ready. The loop exits when
// ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Submit hands req to the worker without blocking.
func (w *Worker) Submit(req Request) error {
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	w.inbox <- req
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.outbox)
	if !w.deliver(ctx, Message{Type: MessageReady}) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.inbox:
			msg := w.handle(req)
			w.busy.Store(false)
			if !w.deliver(ctx, msg) {
				return
			}
		}
	}
}

func (w *Worker) handle(req Request) (msg Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Named("worker").Errorw("parse panicked", "job_id", req.ID, "panic", r)
			err := fmt.Errorf("parse failed: %v", r)
			msg = Message{Type: MessageError, Data: ErrorData{ID: req.ID, Error: err.Error(), Err: err}}
		}
	}()

	format, ok := req.Type.Format()
	if !ok {
		err := fmt.Errorf("%w: request type %q", importer.ErrUnsupportedFormat, req.Type)
		return Message{Type: MessageError, Data: ErrorData{ID: req.ID, Error: err.Error(), Err: err}}
	}

	rows, err := w.parse(format, req.Data, importer.Options{
		OnProgress: func(p importer.Progress) {
			w.trySend(Message{Type: MessageProgress, Data: ProgressData{
				ID:        req.ID,
				Progress:  p.Percent,
				Processed: p.Processed,
				Total:     p.Total,
			}})
		},
	})
	if err != nil {
		return Message{Type: MessageError, Data: ErrorData{ID: req.ID, Error: err.Error(), Err: err}}
	}
	if rows == nil {
		rows = []importer.Row{}
	}
	return Message{Type: MessageResult, Data: ResultData{ID: req.ID, Transactions: rows}}
}

// trySend drops the message when the outbox is full.
func (w *Worker) trySend(msg Message) {
	select {
	case w.outbox <- msg:
	default:
	}
}

// deliver blocks until msg is queued or ctx is done.
func (w *Worker) deliver(ctx context.Context, msg Message) bool {
	select {
	case w.outbox <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
