package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	awstextract "github.com/aws/aws-sdk-go-v2/service/textract"

	"github.com/jackzampolin/tablescan/internal/config"
	"github.com/jackzampolin/tablescan/internal/documents"
	"github.com/jackzampolin/tablescan/internal/home"
	"github.com/jackzampolin/tablescan/internal/metrics"
	"github.com/jackzampolin/tablescan/internal/notify"
	"github.com/jackzampolin/tablescan/internal/pipeline"
	"github.com/jackzampolin/tablescan/internal/profile"
	"github.com/jackzampolin/tablescan/internal/svcctx"
	"github.com/jackzampolin/tablescan/internal/textract"
	"github.com/jackzampolin/tablescan/internal/tracker"
)

// skipServices marks commands that run without loading configuration.
const skipServices = "skip-services"

// loadServices reads the config and builds the logger and profile registry.
func loadServices() (*svcctx.Services, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	level := logLevel
	if level == "" {
		level = cfg.Defaults.LogLevel
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, err
	}

	profiles, err := cfg.ProfileRegistry()
	if err != nil {
		return nil, err
	}
	return &svcctx.Services{Config: cfg, Home: h, Logger: logger, Profiles: profiles}, nil
}

// app gives commands access to the services attached by the root command.
type app struct {
	cfg      *config.Config
	home     *home.Dir
	logger   *slog.Logger
	profiles *profile.Registry
}

func newApp(ctx context.Context) (*app, error) {
	s := svcctx.ServicesFrom(ctx)
	if s == nil {
		var err error
		if s, err = loadServices(); err != nil {
			return nil, err
		}
	}
	return &app{cfg: s.Config, home: s.Home, logger: s.Logger, profiles: s.Profiles}, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func (a *app) awsConfig(ctx context.Context) (aws.Config, error) {
	awsCfg := a.cfg.ResolvedAWS()
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(awsCfg.Region)}
	if awsCfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(awsCfg.Profile))
	}
	c, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return c, nil
}

// textractClient builds the analysis client. An empty mode uses the
// configured one.
func (a *app) textractClient(awsCfg aws.Config, mode string) (*textract.Client, error) {
	tc := a.cfg.Textract
	if mode == "" {
		mode = tc.Mode
	}
	m, err := textract.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return textract.NewClient(awstextract.NewFromConfig(awsCfg), textract.Options{
		Mode:         m,
		FeatureTypes: tc.FeatureTypes,
		MaxResults:   tc.MaxResults,
		PollInterval: tc.PollEvery(),
		MaxPolls:     tc.MaxPolls,
		RateLimit:    tc.RateLimit,
		Logger:       a.logger,
	}), nil
}

func (a *app) openTracker() (*tracker.Tracker, error) {
	if err := a.home.EnsureExists(); err != nil {
		return nil, err
	}
	return tracker.Open(a.home.JobsDBPath(), a.logger)
}

// runner wires a pipeline runner against AWS. The caller closes the tracker.
func (a *app) runner(ctx context.Context, mode string) (*pipeline.Runner, *tracker.Tracker, error) {
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	tc, err := a.textractClient(awsCfg, mode)
	if err != nil {
		return nil, nil, err
	}
	tr, err := a.openTracker()
	if err != nil {
		return nil, nil, err
	}
	rec, err := metrics.NewRecorder(tr.DB())
	if err != nil {
		tr.Close()
		return nil, nil, err
	}

	resolved := a.cfg.ResolvedAWS()
	nc := a.cfg.Notifications
	snsClient := sns.NewFromConfig(awsCfg)
	sqsClient := sqs.NewFromConfig(awsCfg)

	r := pipeline.NewRunner(pipeline.Deps{
		Analyzer:  tc,
		Documents: documents.New(s3.NewFromConfig(awsCfg), a.logger),
		Tracker:   tr,
		NewNotifier: func() pipeline.Notifier {
			return notify.New(snsClient, sqsClient, notify.Options{
				WaitSeconds: nc.WaitSeconds,
				MaxMessages: nc.MaxMessages,
				Timeout:     nc.TimeoutDuration(),
				Logger:      a.logger,
			})
		},
		Metrics:  rec,
		Profiles: a.profiles,
		Home:     a.home,
		Bucket:   resolved.Bucket,
		RoleARN:  resolved.RoleARN,
		Logger:   a.logger,
	})
	return r, tr, nil
}
