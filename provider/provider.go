// Package provider defines where update sets come from.
//
// Providers may fail or time out; Fetch turns any failure into an empty update
// set so the editor simply performs no edits.
package provider

import (
	"context"
	"errors"

	"github.com/kevinwang15/litpatch"
)

// Provider supplies the desired field changes for a run.
type Provider interface {
	FetchUpdates(ctx context.Context) (litpatch.UpdateSet, error)
}

// Func adapts a plain function to Provider.
type Func func(ctx context.Context) (litpatch.UpdateSet, error)

// FetchUpdates calls f.
func (f Func) FetchUpdates(ctx context.Context) (litpatch.UpdateSet, error) { return f(ctx) }

// Fetch asks p for updates. On error or cancellation it logs and returns an
// empty set together with the cause, which callers may report but need not
// act on.
func Fetch(ctx context.Context, p Provider, logger litpatch.Logger) (litpatch.UpdateSet, error) {
	set, err := p.FetchUpdates(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if logger != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
				logger.Warnf("update provider timed out: %v; no updates available", err)
			case errors.Is(err, litpatch.ErrDataFormat):
				logger.Errorf("update payload rejected: %v; no updates available", err)
			default:
				logger.Warnf("update provider failed: %v; no updates available", err)
			}
		}
		return litpatch.UpdateSet{}, err
	}
	if logger != nil {
		logger.Infof("fetched updates for %d record(s), %d field value(s)", len(set), set.Len())
	}
	return set, nil
}
