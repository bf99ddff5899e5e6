package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"magnetctl/internal/config"
	"magnetctl/internal/resume"
)

// buildStore opens the configured resume backend. The locator routes saves
// for torrents outside the default save path; only the filesystem backend
// distinguishes save paths.
func buildStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (resume.Store, resume.Locator, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Resume.Backend {
	case config.BackendSQLite:
		s, err := resume.OpenSQLite(ctx, cfg.Resume.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Infof("using sqlite resume store %s", cfg.Resume.SQLitePath)
		return s, resume.Fixed{Store: s}, s.Close, nil

	case config.BackendS3:
		client, err := buildS3Client(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		s, err := resume.NewS3Store(client, cfg.Resume.S3.Bucket, cfg.Resume.S3.Prefix)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Infof("using s3 bucket %s (region %s) for resume data", cfg.Resume.S3.Bucket, cfg.Resume.S3.Region)
		return s, resume.Fixed{Store: s}, noop, nil

	default:
		s, err := resume.NewDirStore(cfg.SavePath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Infof("using resume dir %s", s.Dir())
		return s, resume.NewDirLocator(s), noop, nil
	}
}

func buildS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Resume.S3.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Resume.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Resume.S3.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
