package query

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vegasq/tablescope/internal/dataset"
	"github.com/vegasq/tablescope/internal/metrics"
)

// Options configures evaluation.
type Options struct {
	Grouping       GroupingMode
	NormalizeNulls bool
	NullMarkers    []string
}

// DefaultOptions returns flat grouping with null normalisation enabled.
func DefaultOptions() Options {
	return Options{
		Grouping:       GroupingFlat,
		NormalizeNulls: true,
		NullMarkers:    DefaultNullMarkers,
	}
}

// Evaluate folds the query's conditions into one selection mask.
//
// The fold starts with an AND connector. Each connector token replaces the
// pending connector; each condition joins the accumulator with the pending
// connector, except the first which seeds it. A query without conditions
// selects every row.
func Evaluate(ds *dataset.Dataset, q *Query, m *Matcher, mode GroupingMode) *dataset.Mask {
	if mode == GroupingGrouped && q.Group != nil {
		group := fold(ds, q.Group.Tokens, nil, m)
		return fold(ds, q.Spliced, group, m)
	}
	return fold(ds, q.Tokens, nil, m)
}

func fold(ds *dataset.Dataset, tokens []Token, group *dataset.Mask, m *Matcher) *dataset.Mask {
	var acc *dataset.Mask
	pending := TokenAnd

	for _, tok := range tokens {
		var current *dataset.Mask
		switch tok.Type {
		case TokenAnd, TokenOr:
			pending = tok.Type
			continue
		case TokenCondition:
			current = m.Match(ds, tok.Column, tok.Operator, tok.Literal)
		case TokenGroup:
			if group == nil {
				continue
			}
			current = group.Clone()
		}

		switch {
		case acc == nil:
			acc = current
		case pending == TokenAnd:
			acc.And(current)
		default:
			acc.Or(current)
		}
	}

	if acc == nil {
		return dataset.NewMask(ds.Len(), true)
	}
	return acc
}

// Result is the outcome of Engine.Filter.
type Result struct {
	// Mask selects the rows passing the query. Never nil.
	Mask *dataset.Mask

	// Query is the parsed query, nil when parsing failed.
	Query *Query

	// Fault is set when evaluation failed and Mask fell back to all rows.
	// It wraps ErrQueryEvaluation.
	Fault error

	// Elapsed is the time spent parsing and evaluating.
	Elapsed time.Duration
}

// Count reports whether the query was wrapped in COUNT( ... ).
func (r Result) Count() bool {
	return r.Query != nil && r.Query.Count
}

// Engine parses and evaluates JQL with fail-open semantics.
type Engine struct {
	opts     Options
	matcher  *Matcher
	logger   *slog.Logger
	evaluate func(*dataset.Dataset, *Query, *Matcher, GroupingMode) *dataset.Mask
}

// NewEngine creates an engine. A nil logger uses slog.Default().
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Grouping == "" {
		opts.Grouping = GroupingFlat
	}
	return &Engine{
		opts:     opts,
		matcher:  NewMatcher(opts.NormalizeNulls, opts.NullMarkers),
		logger:   logger,
		evaluate: Evaluate,
	}
}

// Filter evaluates input against ds. It never fails: any fault while
// parsing or evaluating yields an all-rows mask with Result.Fault set, and is
// logged as a "query: evaluation fault" event.
func (e *Engine) Filter(ds *dataset.Dataset, input string) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = e.fault(ds, res.Query, input, fmt.Errorf("%w: %v", ErrQueryEvaluation, r))
		}
		res.Elapsed = time.Since(start)
		metrics.QueryDuration.Observe(res.Elapsed.Seconds())
		if res.Fault != nil {
			metrics.QueryEvaluations.WithLabelValues("fault").Inc()
		} else {
			metrics.QueryEvaluations.WithLabelValues("ok").Inc()
		}
	}()

	if strings.TrimSpace(input) == "" {
		return Result{Mask: dataset.NewMask(ds.Len(), true)}
	}

	q, err := Parse(input)
	if err != nil {
		return e.fault(ds, nil, input, fmt.Errorf("%w: %w", ErrQueryEvaluation, err))
	}

	if q.Group != nil && e.opts.Grouping == GroupingFlat {
		e.logger.Debug("query: parenthesised group evaluated flat",
			"query", input,
			"group_conditions", q.Group.Conditions())
	}

	res.Query = q
	mask := e.evaluate(ds, q, e.matcher, e.opts.Grouping)
	if mask.Len() != ds.Len() {
		return e.fault(ds, q, input, fmt.Errorf("%w: mask covers %d rows, dataset has %d", ErrQueryEvaluation, mask.Len(), ds.Len()))
	}

	return Result{Mask: mask, Query: q}
}

func (e *Engine) fault(ds *dataset.Dataset, q *Query, input string, err error) Result {
	e.logger.Warn("query: evaluation fault",
		"query", input,
		"dataset", ds.Name,
		"error", err)
	return Result{
		Mask:  dataset.NewMask(ds.Len(), true),
		Query: q,
		Fault: err,
	}
}
