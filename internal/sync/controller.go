// Package sync pushes and pulls the concept working set against the
// backing store. Both directions replace one side wholesale; there is
// no field-level merge and no automatic retry.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	"github.com/kimhsiao/conceptdeck/internal/logging"
	"github.com/kimhsiao/conceptdeck/internal/store"
)

// Op names a sync direction.
type Op string

const (
	OpPush Op = "push"
	OpPull Op = "pull"
)

// Status is the user-facing severity of an outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusInfo    Status = "info"
	StatusError   Status = "error"
)

// Outcome is the user-facing result of a push or pull. Detail never
// carries raw store failure text; that is logged instead.
type Outcome struct {
	Op     Op                  `json:"op"`
	Status Status              `json:"status"`
	Code   apperrors.ErrorCode `json:"code,omitempty"`
	Title  string              `json:"title"`
	Detail string              `json:"detail"`
	Count  int                 `json:"count"`
	At     time.Time           `json:"at"`
}

// Failed reports whether the outcome is an error.
func (o Outcome) Failed() bool {
	return o.Status == StatusError
}

// Controller runs user-initiated sync operations against a store
// gateway and remembers the most recent outcome per direction.
type Controller struct {
	gateway store.Gateway
	now     func() time.Time

	mu       stdsync.Mutex
	lastPush *Outcome
	lastPull *Outcome
}

// NewController creates a Controller over the given gateway.
func NewController(gateway store.Gateway) *Controller {
	return NewControllerWithClock(gateway, time.Now)
}

// NewControllerWithClock injects the clock used for outcome timestamps.
func NewControllerWithClock(gateway store.Gateway, now func() time.Time) *Controller {
	return &Controller{gateway: gateway, now: now}
}

// Push sends the entire local set to the store, replacing its remote
// contents. An empty local set fails fast without touching the store.
// The snapshot itself is never modified.
func (c *Controller) Push(ctx context.Context, snap cache.Snapshot) Outcome {
	if len(snap) == 0 {
		return c.record(Outcome{
			Op:     OpPush,
			Status: StatusError,
			Code:   apperrors.ErrEmptyBatch,
			Title:  "Nothing to sync",
			Detail: "The local set is empty; add or import concepts first.",
			At:     c.now(),
		})
	}

	count, err := c.gateway.ReplaceAll(ctx, snap)
	if err != nil {
		logging.Error("Push failed", err, map[string]interface{}{
			"concepts": len(snap),
		})
		return c.record(c.classify(OpPush, err))
	}

	logging.Info("Push complete", map[string]interface{}{
		"count": count,
	})
	return c.record(Outcome{
		Op:     OpPush,
		Status: StatusSuccess,
		Title:  "Sync complete",
		Detail: fmt.Sprintf("Pushed %d concepts to the store.", count),
		Count:  count,
		At:     c.now(),
	})
}

// Pull fetches the entire remote set. An empty remote set is an
// informational outcome, not a failure, and the given snapshot is
// returned unchanged. A non-empty result becomes the new snapshot.
func (c *Controller) Pull(ctx context.Context, snap cache.Snapshot) (Outcome, cache.Snapshot) {
	remote, err := c.gateway.FetchAll(ctx)
	if err != nil {
		logging.Error("Pull failed", err, nil)
		return c.record(c.classify(OpPull, err)), snap
	}

	if len(remote) == 0 {
		return c.record(Outcome{
			Op:     OpPull,
			Status: StatusInfo,
			Code:   apperrors.ErrEmptyBatch,
			Title:  "No data",
			Detail: "The store holds no concepts; the local set was left unchanged.",
			At:     c.now(),
		}), snap
	}

	logging.Info("Pull complete", map[string]interface{}{
		"count": len(remote),
	})
	out := Outcome{
		Op:     OpPull,
		Status: StatusSuccess,
		Title:  "Sync complete",
		Detail: fmt.Sprintf("Pulled %d concepts from the store.", len(remote)),
		Count:  len(remote),
		At:     c.now(),
	}
	return c.record(out), remote
}

// Last returns copies of the most recent push and pull outcomes. Nil
// means that direction has not run this session.
func (c *Controller) Last() (push, pull *Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneOutcome(c.lastPush), cloneOutcome(c.lastPull)
}

// classify maps a store failure onto the outcome taxonomy so the user
// is told whether to fix the data or check connectivity.
func (c *Controller) classify(op Op, err error) Outcome {
	if apperrors.Is(err, apperrors.ErrValidation) {
		return Outcome{
			Op:     op,
			Status: StatusError,
			Code:   apperrors.ErrValidation,
			Title:  "Sync rejected",
			Detail: "One or more concepts failed storage validation; fix the data and retry.",
			At:     c.now(),
		}
	}
	return Outcome{
		Op:     op,
		Status: StatusError,
		Code:   apperrors.ErrTransport,
		Title:  "Store unreachable",
		Detail: "Could not reach the concept store; check the connection and retry.",
		At:     c.now(),
	}
}

func (c *Controller) record(out Outcome) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch out.Op {
	case OpPush:
		c.lastPush = &out
	case OpPull:
		c.lastPull = &out
	}
	return out
}

func cloneOutcome(o *Outcome) *Outcome {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}
