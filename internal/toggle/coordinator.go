package toggle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"routemap/internal/domain"
	"routemap/internal/panel"
)

var (
	ErrUnknownRoute    = errors.New("unknown route")
	ErrControlBusy     = errors.New("route control is busy")
	ErrBatchInProgress = errors.New("toggle all already in progress")
)

type LayerStore interface {
	Show(ctx context.Context, route domain.Route) error
	Hide(relationID string)
}

// Reporter receives failures after the control has been reverted
type Reporter interface {
	RouteFailed(relationID string, err error)
}

// Outcome is the result of toggling one route
type Outcome struct {
	RelationID string `json:"relationId"`
	Checked    bool   `json:"checked"`
	Err        error  `json:"-"`
}

type BatchResult struct {
	Target   bool               `json:"target"`
	Outcomes []Outcome          `json:"outcomes"`
	Master   panel.MasterStatus `json:"master"`
}

func (r BatchResult) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

type Coordinator struct {
	store    LayerStore
	panel    *panel.Panel
	reporter Reporter
	logger   *slog.Logger
}

func New(store LayerStore, p *panel.Panel, reporter Reporter, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		panel:    p,
		reporter: reporter,
		logger:   logger.With("component", "toggle"),
	}
}

// ToggleRoute handles a click on a single route control. It is independent
// of any running batch.
func (c *Coordinator) ToggleRoute(ctx context.Context, relationID string, checked bool) (Outcome, error) {
	ctrl, ok := c.panel.Control(relationID)
	if !ok {
		return Outcome{}, ErrUnknownRoute
	}
	if !ctrl.TryDisable() {
		return Outcome{}, ErrControlBusy
	}

	ctrl.SetChecked(checked)
	out := c.apply(ctx, ctrl, checked)
	ctrl.SetDisabled(false)

	c.panel.RefreshMaster()
	return out, nil
}

// ToggleAll drives every control that differs from the target, one at a
// time. A failing route is reverted and reported; the batch carries on.
// The master control stays disabled until the last route is done.
func (c *Coordinator) ToggleAll(ctx context.Context, checked bool) (BatchResult, error) {
	if !c.panel.TryDisableMaster() {
		return BatchResult{}, ErrBatchInProgress
	}

	start := time.Now()
	result := BatchResult{Target: checked}

	for _, ctrl := range c.panel.Controls() {
		if ctrl.Checked() == checked {
			continue
		}

		ctrl.SetChecked(checked)
		ctrl.SetDisabled(true)
		result.Outcomes = append(result.Outcomes, c.apply(ctx, ctrl, checked))
		ctrl.SetDisabled(false)
	}

	c.panel.EnableMaster()
	result.Master = c.panel.RefreshMaster()

	c.logger.Info("toggle all completed",
		"target", checked,
		"processed", len(result.Outcomes),
		"failed", len(result.Failed()),
		"master", result.Master.State,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (c *Coordinator) apply(ctx context.Context, ctrl *panel.Control, checked bool) Outcome {
	route := ctrl.Route()

	var err error
	if checked {
		err = c.store.Show(ctx, route)
	} else {
		c.store.Hide(route.RelationID)
	}

	if err != nil {
		c.logger.Error("route operation failed", "relation_id", route.RelationID, "error", err)
		ctrl.SetChecked(!checked)
		if c.reporter != nil {
			c.reporter.RouteFailed(route.RelationID, err)
		}
	}

	return Outcome{
		RelationID: route.RelationID,
		Checked:    ctrl.Checked(),
		Err:        err,
	}
}
