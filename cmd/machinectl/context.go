package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"machine-service-backend/config"
	"machine-service-backend/internal/backend"
	"machine-service-backend/internal/db"
	"machine-service-backend/internal/model"
	"machine-service-backend/internal/remote"
	"machine-service-backend/internal/roster"
	"machine-service-backend/internal/workflow"
)

const defaultConfigPath = "./config/config.yaml"

type commandContext struct {
	configFlag *string
	serverFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, serverFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
	}
}

// ensureConfig loads the configuration once. An explicitly named file must
// exist; the default location falls back to built-in defaults.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		explicit := path != ""
		if !explicit {
			path = os.Getenv("CONFIG_PATH")
			explicit = path != ""
		}
		if path == "" {
			path = defaultConfigPath
		}

		cfg, err := config.Load(path)
		if errors.Is(err, os.ErrNotExist) && !explicit {
			cfg, err = config.Default(), nil
		}
		if err != nil {
			c.configErr = fmt.Errorf("load config %s: %w", path, err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// operatorDirectory is the slice of roster behaviour the commands need,
// served locally by *roster.Roster or by a remote server.
type operatorDirectory interface {
	List(ctx context.Context) ([]model.Operator, error)
	Get(ctx context.Context, epf string) (model.Operator, error)
	Add(ctx context.Context, name, epf string) (model.Operator, error)
	Delete(ctx context.Context, epf string) error
}

type remoteOperators struct {
	client *remote.Client
}

func (r remoteOperators) List(ctx context.Context) ([]model.Operator, error) {
	return r.client.ListOperators(ctx)
}

func (r remoteOperators) Get(ctx context.Context, epf string) (model.Operator, error) {
	return r.client.GetOperator(ctx, epf)
}

func (r remoteOperators) Add(ctx context.Context, name, epf string) (model.Operator, error) {
	return r.client.AddOperator(ctx, name, epf)
}

func (r remoteOperators) Delete(ctx context.Context, epf string) error {
	return r.client.DeleteOperator(ctx, epf)
}

// session is everything one command invocation works with.
type session struct {
	engine    *workflow.Engine
	operators operatorDirectory
	loc       *time.Location
	closers   []func() error
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func (c *commandContext) withSession(fn func(*session) error) error {
	s, err := c.openSession()
	if err != nil {
		return err
	}
	defer s.close()
	return fn(s)
}

func (c *commandContext) openSession() (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := workflow.Options{
		WaitEstimator:   workflow.FixedWaitEstimator(cfg.Workflow.WaitPerMachine),
		EnforceSequence: cfg.Workflow.EnforceSequence,
	}

	if server := strings.TrimSpace(*c.serverFlag); server != "" {
		client, err := remote.New(server, remote.Options{
			PageSize:  cfg.Store.PageSize,
			Timeout:   time.Duration(cfg.Store.TimeoutSec) * time.Second,
			HTTPProxy: cfg.Store.HTTPProxy,
		})
		if err != nil {
			return nil, err
		}
		return &session{
			engine:    workflow.NewEngine(client, opts),
			operators: remoteOperators{client: client},
			loc:       cfg.Server.Location,
		}, nil
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, err
	}
	s := &session{loc: cfg.Server.Location}
	if sqlDB, err := gormDB.DB(); err == nil {
		s.closers = append(s.closers, sqlDB.Close)
	}

	journeys, closeStore, err := backend.Open(&cfg.Store, gormDB)
	if err != nil {
		s.close()
		return nil, err
	}
	s.closers = append(s.closers, closeStore)

	ros := roster.New(gormDB)
	defaults := make([]model.Operator, 0, len(cfg.Roster.Defaults))
	for _, e := range cfg.Roster.Defaults {
		defaults = append(defaults, model.Operator{Name: e.Name, EPF: e.EPF})
	}
	if err := ros.Seed(context.Background(), defaults); err != nil {
		s.close()
		return nil, err
	}

	s.engine = workflow.NewEngine(journeys, opts)
	s.operators = ros
	return s, nil
}
