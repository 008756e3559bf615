// Package explorer ties the session store, the JQL engine and the view engine
// together into the operations the viewer performs: filter and page,
// analyse a column, store a dataset, and drop a session.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vegasq/tablescope/internal/dataset"
	"github.com/vegasq/tablescope/internal/query"
	"github.com/vegasq/tablescope/internal/session"
	"github.com/vegasq/tablescope/internal/view"
)

// ErrSessionNotFound is returned when a session is unknown, expired, or
// owned by another client.
var ErrSessionNotFound = errors.New("session expired or file not loaded")

// Client identifies the caller of an operation.
type Client struct {
	RemoteAddr string
	UserAgent  string
}

// Fingerprint returns the owner fingerprint of the client.
func (c Client) Fingerprint() string {
	return session.Fingerprint(c.RemoteAddr, c.UserAgent)
}

// PageRequest asks for one page of filtered rows.
type PageRequest struct {
	SessionID string
	Query     string
	Sort      view.Sort
	Page      int
}

// PageResponse is one page of filtered rows.
type PageResponse struct {
	Rows       []view.Record
	TotalCount int
	Elapsed    time.Duration

	// CountOnly is set when the query was wrapped in COUNT(...).
	CountOnly bool

	// Fault is set when the query could not be evaluated and every row was
	// selected instead.
	Fault error
}

// AnalyzeRequest asks for value counts of one column over filtered rows.
type AnalyzeRequest struct {
	SessionID string
	Column    string
	Query     string
}

// Options configures an Explorer.
type Options struct {
	PageSize  int
	TopValues int
	Logger    *slog.Logger
}

// Explorer serves dataset operations for clients.
type Explorer struct {
	store     session.Store
	engine    *query.Engine
	pageSize  int
	topValues int
	logger    *slog.Logger
}

// New creates an Explorer over store using engine for JQL.
func New(store session.Store, engine *query.Engine, opts Options) *Explorer {
	if opts.PageSize <= 0 {
		opts.PageSize = view.DefaultPageSize
	}
	if opts.TopValues <= 0 {
		opts.TopValues = view.DefaultTopValues
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Explorer{
		store:     store,
		engine:    engine,
		pageSize:  opts.PageSize,
		topValues: opts.TopValues,
		logger:    opts.Logger,
	}
}

// FilterAndPage applies req.Query, sorts, and returns the requested page.
func (e *Explorer) FilterAndPage(ctx context.Context, c Client, req PageRequest) (*PageResponse, error) {
	ds, err := e.load(ctx, c, req.SessionID)
	if err != nil {
		return nil, err
	}

	res := e.engine.Filter(ds, req.Query)
	page := view.Paginate(ds, res.Mask, req.Sort, req.Page, e.pageSize)

	return &PageResponse{
		Rows:       page.Rows,
		TotalCount: page.TotalCount,
		Elapsed:    res.Elapsed + page.Elapsed,
		CountOnly:  res.Count(),
		Fault:      res.Fault,
	}, nil
}

// AnalyzeColumn returns the most frequent values of req.Column among the rows
// selected by req.Query.
func (e *Explorer) AnalyzeColumn(ctx context.Context, c Client, req AnalyzeRequest) (*view.ColumnStats, error) {
	ds, err := e.load(ctx, c, req.SessionID)
	if err != nil {
		return nil, err
	}

	res := e.engine.Filter(ds, req.Query)
	return view.Analyze(ds, res.Mask, req.Column, e.topValues)
}

// StoreDataset stores ds under id for the client, replacing any previous
// dataset.
func (e *Explorer) StoreDataset(ctx context.Context, c Client, id string, ds *dataset.Dataset) error {
	if err := e.store.Put(ctx, id, c.Fingerprint(), ds); err != nil {
		return fmt.Errorf("failed to store dataset: %w", err)
	}
	return nil
}

// DeleteSession drops a session. Unknown ids are ignored.
func (e *Explorer) DeleteSession(ctx context.Context, id string) error {
	if err := e.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Dataset returns the stored dataset of a session.
func (e *Explorer) Dataset(ctx context.Context, c Client, id string) (*dataset.Dataset, error) {
	return e.load(ctx, c, id)
}

// Filtered returns the rows of a session's dataset selected by q, in
// dataset order.
func (e *Explorer) Filtered(ctx context.Context, c Client, id, q string) (*dataset.Dataset, error) {
	ds, err := e.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	res := e.engine.Filter(ds, q)
	return ds.Filter(res.Mask), nil
}

func (e *Explorer) load(ctx context.Context, c Client, id string) (*dataset.Dataset, error) {
	ds, err := e.store.Get(ctx, id, c.Fingerprint())
	if errors.Is(err, session.ErrNotFound) {
		e.logger.Debug("explorer: session not found", "session_id", id)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return ds, nil
}
