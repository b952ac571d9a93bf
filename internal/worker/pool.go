package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"moneta/internal/importer"
	"moneta/internal/logger"
)

// ErrPoolClosed is returned by Parse after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool serializes jobs onto a fixed set of workers. Each call checks out one
// idle worker, so a worker never sees a second job while busy.
type Pool struct {
	idle   chan *Worker
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool starts size workers and waits for each to report ready.
func NewPool(size int, parse ParseFunc) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{idle: make(chan *Worker, size), ctx: ctx, cancel: cancel}
	for i := 0; i < size; i++ {
		w := New(parse, DefaultOutbox)
		w.Start(ctx)
		if msg, ok := <-w.Messages(); ok && msg.Type == MessageReady {
			p.idle <- w
		}
	}
	logger.Named("worker").Infow("parse pool started", "workers", size)
	return p
}

// Close stops every worker. Jobs in flight are abandoned.
func (p *Pool) Close() {
	p.cancel()
}

// Parse runs one job and blocks until its result, its error or ctx is done.
// onProgress may be nil. When ctx ends first Parse returns ctx.Err() and the
// worker's late result is drained and discarded in the background.
func (p *Pool) Parse(ctx context.Context, format importer.Format, data []byte, onProgress func(importer.Progress)) ([]importer.Row, error) {
	reqType, ok := RequestTypeFor(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", importer.ErrUnsupportedFormat, format)
	}

	var w *Worker
	select {
	case w = <-p.idle:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, ErrPoolClosed
	}

	req := Request{ID: uuid.NewString(), Type: reqType, Data: data}
	if err := w.Submit(req); err != nil {
		p.idle <- w
		return nil, err
	}

	for {
		select {
		case msg, ok := <-w.Messages():
			if !ok {
				return nil, ErrPoolClosed
			}
			if msg.jobID() != req.ID {
				continue
			}
			switch d := msg.Data.(type) {
			case ProgressData:
				if onProgress != nil {
					onProgress(importer.Progress{Processed: d.Processed, Total: d.Total, Percent: d.Progress})
				}
			case ResultData:
				p.idle <- w
				return d.Transactions, nil
			case ErrorData:
				p.idle <- w
				if d.Err != nil {
					return nil, d.Err
				}
				return nil, errors.New(d.Error)
			}
		case <-ctx.Done():
			go p.discard(w, req.ID)
			return nil, ctx.Err()
		}
	}
}

// discard drains w until the abandoned job finishes, then returns w to the
// idle set.
func (p *Pool) discard(w *Worker, jobID string) {
	for msg := range w.Messages() {
		if msg.jobID() != jobID {
			continue
		}
		if msg.Type == MessageResult || msg.Type == MessageError {
			logger.Named("worker").Debugw("discarded late parse result", "job_id", jobID, "type", msg.Type)
			p.idle <- w
			return
		}
	}
}
