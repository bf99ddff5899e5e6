package ingest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"magnetctl/internal/resume"
)

// Replayer resubmits every stored resume blob once at startup. It runs on its
// own goroutine and only ever calls Submit, so it shares no state with the
// main loop.
type Replayer struct {
	store    resume.Store
	pipeline *Pipeline
	logger   *logrus.Entry

	group *errgroup.Group
}

func NewReplayer(store resume.Store, pipeline *Pipeline, logger *logrus.Logger) *Replayer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Replayer{
		store:    store,
		pipeline: pipeline,
		logger:   logger.WithField("component", "replay"),
	}
}

// Start launches the replay. Cancelling ctx stops it between submissions.
func (r *Replayer) Start(ctx context.Context) {
	var g errgroup.Group
	r.group = &g
	g.Go(func() error {
		return r.run(ctx)
	})
}

// Wait blocks until the replay has finished. It is safe to call without Start.
func (r *Replayer) Wait() error {
	if r.group == nil {
		return nil
	}
	return r.group.Wait()
}

func (r *Replayer) run(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	ids, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list resume data: %w", err)
	}
	var added, skipped int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			r.logger.Infof("replay stopped after %d of %d", added+skipped, len(ids))
			return nil
		}
		params, ok, err := resume.LoadParams(ctx, r.store, id)
		if !ok {
			if err != nil {
				r.logger.WithField("torrent", id.Hex()).Warnf("skipping resume data: %v", err)
			}
			skipped++
			continue
		}
		params.Identity = id
		if _, err := r.pipeline.AddParams(ctx, params); err != nil {
			r.logger.WithField("torrent", id.Hex()).Warnf("failed to resubmit: %v", err)
			skipped++
			continue
		}
		added++
	}
	r.logger.WithFields(logrus.Fields{"added": added, "skipped": skipped}).Info("resume replay finished")
	return nil
}
