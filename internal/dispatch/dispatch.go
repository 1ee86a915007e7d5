// Package dispatch turns a resolved answer into the string shown to the user.
// Text answers are returned as stored; function answers are re-derived from
// live cafe data on every call.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/cafebot-go/internal/cafe"
	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/qa"
)

// Endpoint identifiers stored as the functionPath of function answers.
const (
	EndpointAvailableMenu = "/api/cafe/menu/available"
	EndpointBusinessHours = "/api/cafe/business-hours"
	EndpointFacilities    = "/api/cafe/facilities"
)

// Apology is returned whenever a live-data lookup fails.
const Apology = "죄송합니다. 요청을 처리하는 중에 오류가 발생했습니다."

// ErrUnknownEndpoint is returned by Invoke for an unregistered functionPath.
var ErrUnknownEndpoint = errors.New("dispatch: unknown endpoint")

// DataSource is the read side of the cafe data service.
type DataSource interface {
	AvailableMenu() cafe.Menu
	BusinessHours() cafe.BusinessHours
	Facilities() cafe.Facilities
}

// Config configures a Dispatcher.
type Config struct {
	// Data supplies live cafe data. Required.
	Data DataSource
	// Location is the cafe's local timezone. Defaults to time.Local.
	Location *time.Location
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// handler renders one endpoint from live data.
type handler func(now time.Time, params map[string]any) (string, error)

// Dispatcher renders answers. It is safe for concurrent use.
type Dispatcher struct {
	data     DataSource
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
	handlers map[string]handler
}

// New constructs a Dispatcher with the menu, hours and facilities handlers.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Data == nil {
		return nil, fmt.Errorf("dispatch: data source must not be nil")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	d := &Dispatcher{
		data: cfg.Data,
		loc:  cfg.Location,
		now:  cfg.Now,
		log:  cfg.Logger,
	}
	d.handlers = map[string]handler{
		EndpointAvailableMenu: d.availableMenu,
		EndpointBusinessHours: d.businessHours,
		EndpointFacilities:    d.facilities,
	}
	return d, nil
}

// Render returns the user-facing string for a. It never fails: live-data
// faults, including panics inside a handler, become Apology.
func (d *Dispatcher) Render(ctx context.Context, a qa.Answer) string {
	log := logging.FromContext(ctx)
	if log == slog.Default() {
		log = d.log
	}
	return a.Accept(renderer{d: d, log: log})
}

// Invoke runs the handler for path directly.
func (d *Dispatcher) Invoke(path string, params map[string]any) (out string, err error) {
	h, ok := d.handlers[path]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, path)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: handler %s panicked: %v", path, r)
		}
	}()
	return h(d.now().In(d.loc), params)
}

// renderer is the per-call qa.BodyVisitor.
type renderer struct {
	d   *Dispatcher
	log *slog.Logger
}

func (r renderer) VisitText(b qa.TextBody) string {
	return b.Content
}

func (r renderer) VisitFunction(b qa.FunctionBody) string {
	out, err := r.d.Invoke(b.Path, b.Parameters)
	if err != nil {
		r.log.Error("dispatch: live-data lookup failed",
			slog.String("endpoint", b.Path),
			slog.String("error", err.Error()),
		)
		return Apology
	}
	return out
}
