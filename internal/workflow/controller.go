// Package workflow implements the upload, predict, and record state machine
// for one session.
//
// A Controller runs a single event loop goroutine that owns all attempt
// state. Intents (SelectFile, Submit, Reset) and classifier completions are
// processed on that loop one at a time, so a completion handler always runs
// to completion before the next intent. Each submitted request carries the
// generation that was current when it was issued; Submit, Reset, and a new
// selection advance the generation, and completions from an older
// generation are discarded.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/JaimeStill/mammoguard/internal/history"
	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/internal/previews"
	"github.com/JaimeStill/mammoguard/pkg/pagination"
)

type intent struct {
	name  string
	fn    func() error
	reply chan error
}

type completion struct {
	generation uint64
	file       File
	result     predictions.Result
}

type selection struct {
	file    File
	preview previews.Ref
}

// Controller owns the attempt state, history, and previews of one session.
type Controller struct {
	classifier predictions.Classifier
	previews   *previews.Store
	ledger     *history.Ledger
	now        func() time.Time
	logger     *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	intents     chan intent
	completions chan completion
	quit        chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	requests    sync.WaitGroup

	// owned by the event loop
	state      State
	generation uint64
	selected   *selection
	result     *predictions.Result
	current    *history.Submission

	snapMu    sync.RWMutex
	snap      Snapshot
	subs      map[int]chan Snapshot
	nextSub   int
	subClosed bool
}

// New creates a Controller in the Idle state and starts its event loop.
// The store is owned by the controller from here on and released by Close.
func New(classifier predictions.Classifier, store *previews.Store, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		classifier:  classifier,
		previews:    store,
		ledger:      history.NewLedger(),
		now:         time.Now,
		logger:      logger.With("system", "workflow"),
		ctx:         ctx,
		cancel:      cancel,
		intents:     make(chan intent),
		completions: make(chan completion),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		subs:        make(map[int]chan Snapshot),
		snap:        Snapshot{State: Idle, History: []history.Submission{}},
	}

	go c.run()
	return c
}

// WithClock replaces the clock used to timestamp submissions.
// It must be called before the first intent.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// SelectFile replaces the selected image. The previous preview is revoked
// before a new one is created. A nil file clears the selection; the last
// result and the history are left untouched.
func (c *Controller) SelectFile(ctx context.Context, f *File) error {
	return c.do(ctx, "select", func() error {
		c.selectFile(f)
		return nil
	})
}

// Submit sends the selected image to the classifier. It returns
// ErrNoFileSelected without changing state when nothing is selected and is a
// no-op while a request is already in flight.
func (c *Controller) Submit(ctx context.Context) error {
	return c.do(ctx, "submit", c.submit)
}

// Reset clears the selection and result and returns to Idle. History is kept.
// An outstanding request is not cancelled; its completion is discarded.
func (c *Controller) Reset(ctx context.Context) error {
	return c.do(ctx, "reset", func() error {
		c.reset()
		return nil
	})
}

// Snapshot returns the state published after the most recent mutation.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	s := c.snap
	c.snapMu.RUnlock()

	s.History = slices.Clone(s.History)
	return s
}

// Subscribe returns a channel that receives a Snapshot after every mutation,
// starting with the current one. Slow receivers only see the latest
// snapshot. The channel is closed by cancel or when the controller closes.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.snapMu.Lock()
	if c.subClosed {
		c.snapMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snap
	c.snapMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.snapMu.Lock()
			defer c.snapMu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// History returns a most-recent-first copy of the session history.
func (c *Controller) History() []history.Submission {
	return c.ledger.All()
}

// HistoryPage returns one window of the session history.
func (c *Controller) HistoryPage(req pagination.PageRequest) pagination.PageResult[history.Submission] {
	return c.ledger.Page(req)
}

// Entry returns the history entry at index i, where 0 is the most recent.
func (c *Controller) Entry(i int) (history.Submission, error) {
	return c.ledger.At(i)
}

// Current returns the submission behind the current successful result.
func (c *Controller) Current() (history.Submission, error) {
	s, ok := c.Snapshot().Current()
	if !ok {
		return history.Submission{}, ErrNoResult
	}
	return s, nil
}

// Preview returns the image behind a live preview reference.
func (c *Controller) Preview(ref previews.Ref) (previews.Preview, error) {
	return c.previews.Get(ref)
}

// Done is closed once the controller has shut down.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Close ends the session: the event loop stops, every preview is revoked,
// and subscriber channels are closed. Outstanding requests are cancelled.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.quit)
	})
	<-c.done
	c.requests.Wait()
	return nil
}

func (c *Controller) do(ctx context.Context, name string, fn func() error) error {
	in := intent{name: name, fn: fn, reply: make(chan error, 1)}

	select {
	case c.intents <- in:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	return <-in.reply
}

func (c *Controller) run() {
	defer close(c.done)

	for {
		select {
		case in := <-c.intents:
			err := in.fn()
			if err == nil {
				c.publish()
			}
			in.reply <- err
		case cmp := <-c.completions:
			if c.complete(cmp) {
				c.publish()
			}
		case <-c.quit:
			c.shutdown()
			return
		}
	}
}

func (c *Controller) selectFile(f *File) {
	if c.selected != nil {
		c.previews.Revoke(c.selected.preview)
		c.selected = nil
	}

	if c.state == InFlight {
		c.generation++
		c.logger.Debug("in-flight request superseded by selection", "generation", c.generation)
	}

	if f == nil {
		c.state = Idle
		return
	}

	file := *f
	c.selected = &selection{
		file:    file,
		preview: c.previews.Create(file.Data, file.ContentType),
	}
	c.state = Ready
}

func (c *Controller) submit() error {
	if c.state == InFlight {
		return nil
	}
	if c.selected == nil {
		return ErrNoFileSelected
	}

	c.generation++
	c.state = InFlight

	gen := c.generation
	file := c.selected.file

	c.logger.Info("prediction requested", "file", file.Name, "generation", gen)

	c.requests.Add(1)
	go c.classify(gen, file)

	return nil
}

func (c *Controller) classify(gen uint64, file File) {
	defer c.requests.Done()

	result := c.invoke(file)

	select {
	case c.completions <- completion{generation: gen, file: file, result: result}:
	case <-c.done:
	}
}

func (c *Controller) invoke(file File) (result predictions.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = predictions.Failure(fmt.Errorf("%w: classifier panic: %v", predictions.ErrTransport, r))
		}
	}()

	return c.classifier.Classify(c.ctx, predictions.Image{
		Name:        file.Name,
		ContentType: file.ContentType,
		Data:        file.Data,
	})
}

// complete applies a completion and reports whether state changed.
func (c *Controller) complete(cmp completion) bool {
	if cmp.generation != c.generation {
		c.logger.Debug("stale completion discarded",
			"generation", cmp.generation,
			"current", c.generation,
		)
		return false
	}

	result := cmp.result
	c.state = Settled
	c.result = &result
	c.current = nil

	if !result.OK() {
		c.logger.Warn("prediction failed", "file", cmp.file.Name, "error", result.Reason())
		return true
	}

	s := history.Submission{
		FileName:   cmp.file.Name,
		Class:      result.Class(),
		Confidence: result.Confidence(),
		Preview:    c.previews.Create(cmp.file.Data, cmp.file.ContentType),
		Timestamp:  c.now(),
	}
	c.ledger.Append(s)
	c.current = &s

	c.logger.Info("prediction recorded",
		"file", s.FileName,
		"class", s.Class,
		"confidence", s.Confidence,
	)
	return true
}

func (c *Controller) reset() {
	if c.selected != nil {
		c.previews.Revoke(c.selected.preview)
		c.selected = nil
	}

	c.generation++
	c.state = Idle
	c.result = nil
	c.current = nil
}

func (c *Controller) publish() {
	s := Snapshot{
		State:   c.state,
		Result:  c.result,
		History: c.ledger.All(),
		current: c.current,
	}
	if c.selected != nil {
		s.File = c.selected.file.Name
		s.Preview = c.selected.preview
	}

	c.snapMu.Lock()
	defer c.snapMu.Unlock()

	c.snap = s
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

func (c *Controller) shutdown() {
	released := c.previews.RevokeAll()
	c.selected = nil

	c.snapMu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subClosed = true
	c.snapMu.Unlock()

	c.logger.Info("session closed", "previews_released", released, "history", c.ledger.Len())
}
