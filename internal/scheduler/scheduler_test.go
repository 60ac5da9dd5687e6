package scheduler

import (
	"context"

	"github.com/wonny/optionflow/pkg/config"
	"github.com/wonny/optionflow/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	runErr   error
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Schedule() string {
	if j.schedule == "" {
		return "0 0 0 * * *"
	}
	return j.schedule
}

func (j *stubJob) Run(ctx context.Context) error { return j.runErr }

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}
