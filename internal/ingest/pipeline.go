// Package ingest turns torrent files, magnet links and stored resume data into
// add requests.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/sirupsen/logrus"

	"magnetctl/internal/domain"
	"magnetctl/internal/metrics"
	"magnetctl/internal/resume"
)

var (
	ErrInvalidMagnet      = errors.New("invalid magnet link")
	ErrInvalidTorrentFile = errors.New("invalid torrent file")
	// ErrRejected wraps submit failures. The engine reports those itself with
	// a failed torrent-added alert.
	ErrRejected = errors.New("rejected by engine")
)

// Submitter accepts add requests. Deduplication by identity is its concern.
type Submitter interface {
	Submit(ctx context.Context, req domain.AddRequest) (domain.Identity, error)
}

// Pipeline builds add requests from every source and forwards them. It holds
// no mutable state and may be used from several goroutines.
type Pipeline struct {
	submitter Submitter
	store     resume.Store
	defaults  domain.Options
	logger    *logrus.Entry
	metrics   *metrics.Metrics
}

// NewPipeline returns a pipeline applying defaults (the options given on the
// command line) to every explicit source.
func NewPipeline(submitter Submitter, store resume.Store, defaults domain.Options, logger *logrus.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		submitter: submitter,
		store:     store,
		defaults:  defaults,
		logger:    logger.WithField("component", "ingest"),
		metrics:   m,
	}
}

// IsMagnet reports whether arg looks like a magnet URI.
func IsMagnet(arg string) bool {
	return strings.HasPrefix(strings.TrimSpace(arg), "magnet:")
}

// Add ingests a command line argument: a magnet URI or a torrent file path.
func (p *Pipeline) Add(ctx context.Context, arg string) (domain.Identity, error) {
	if IsMagnet(arg) {
		return p.AddMagnet(ctx, arg)
	}
	return p.AddFile(ctx, arg)
}

// AddMagnet parses uri and submits it, overlaying stored resume data if any.
func (p *Pipeline) AddMagnet(ctx context.Context, uri string) (domain.Identity, error) {
	req, err := p.MagnetRequest(ctx, uri)
	if err != nil {
		p.metrics.Ingest(domain.SourceMagnet.String(), err)
		return domain.Identity{}, err
	}
	return p.Submit(ctx, req)
}

// MagnetRequest builds the add request for uri without submitting it.
func (p *Pipeline) MagnetRequest(ctx context.Context, uri string) (domain.AddRequest, error) {
	uri = strings.TrimSpace(uri)
	m, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		return domain.AddRequest{}, fmt.Errorf("%w %q: %v", ErrInvalidMagnet, uri, err)
	}
	src := domain.Source{
		Type:     domain.SourceMagnet,
		Location: uri,
		Identity: domain.Identity(m.InfoHash),
		Name:     m.DisplayName,
		Trackers: m.Trackers,
	}
	return p.request(ctx, src), nil
}

// AddFile parses a .torrent file and submits it, overlaying stored resume
// data if any.
func (p *Pipeline) AddFile(ctx context.Context, path string) (domain.Identity, error) {
	req, err := p.FileRequest(ctx, path)
	if err != nil {
		p.metrics.Ingest(domain.SourceFile.String(), err)
		return domain.Identity{}, err
	}
	return p.Submit(ctx, req)
}

// FileRequest builds the add request for a torrent file without submitting it.
func (p *Pipeline) FileRequest(ctx context.Context, path string) (domain.AddRequest, error) {
	mi, err := metainfo.LoadFromFile(path)
	if err != nil {
		return domain.AddRequest{}, fmt.Errorf("%w %q: %v", ErrInvalidTorrentFile, path, err)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return domain.AddRequest{}, fmt.Errorf("%w %q: %v", ErrInvalidTorrentFile, path, err)
	}
	var trackers []string
	for _, tier := range mi.UpvertedAnnounceList() {
		trackers = append(trackers, tier...)
	}
	src := domain.Source{
		Type:      domain.SourceFile,
		Location:  path,
		Identity:  domain.Identity(mi.HashInfoBytes()),
		Name:      info.BestName(),
		Trackers:  trackers,
		InfoBytes: mi.InfoBytes,
	}
	return p.request(ctx, src), nil
}

func (p *Pipeline) request(ctx context.Context, src domain.Source) domain.AddRequest {
	req := domain.AddRequest{Source: src, Options: p.defaults}
	params, ok, err := resume.LoadParams(ctx, p.store, src.Identity)
	if err != nil {
		p.logger.WithField("torrent", src.Identity.Hex()).Warnf("failed to load resume data: %v", err)
	}
	if ok && params.Identity == src.Identity {
		req.Overlay = &params
	}
	return req
}

// AddParams resubmits stored params. A torrent loaded from resume data does
// not need to be saved again right away.
func (p *Pipeline) AddParams(ctx context.Context, params domain.Params) (domain.Identity, error) {
	req := domain.AddRequest{
		Source: domain.Source{
			Type:      domain.SourceResume,
			Identity:  params.Identity,
			Name:      params.Name,
			InfoBytes: params.InfoBytes,
		},
		Options: domain.Options{}.WithNeedSave(false),
		Overlay: &params,
	}
	return p.Submit(ctx, req)
}

// Submit forwards req as is. Duplicate identities are forwarded too.
func (p *Pipeline) Submit(ctx context.Context, req domain.AddRequest) (domain.Identity, error) {
	id, err := p.submitter.Submit(ctx, req)
	p.metrics.Ingest(req.Source.Type.String(), err)
	if err != nil {
		return id, fmt.Errorf("submit %s: %w: %w", req.Source.Type, ErrRejected, err)
	}
	p.logger.WithFields(logrus.Fields{
		"torrent": id.Hex(),
		"source":  req.Source.Type.String(),
	}).Debug("add request submitted")
	return id, nil
}
