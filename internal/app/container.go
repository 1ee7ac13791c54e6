// Package app wires application services with infrastructure adapters.
package app

import (
	"context"
	"path/filepath"

	"github.com/zeittresor/csforge/internal/infrastructure/config"
	"github.com/zeittresor/csforge/internal/infrastructure/diagnostics"
	"github.com/zeittresor/csforge/internal/infrastructure/history"
	"github.com/zeittresor/csforge/internal/infrastructure/installer"
	"github.com/zeittresor/csforge/internal/infrastructure/logsink"
	"github.com/zeittresor/csforge/internal/infrastructure/runner"
	"github.com/zeittresor/csforge/internal/infrastructure/scaffold"
	"github.com/zeittresor/csforge/internal/infrastructure/toolchain"
	"github.com/zeittresor/csforge/internal/pkg/filesystem"
	"github.com/zeittresor/csforge/internal/pkg/logger"
	"github.com/zeittresor/csforge/internal/ports"
	"github.com/zeittresor/csforge/internal/services"
)

// Container wires up application services with infrastructure adapters.
type Container struct {
	BuildService  *services.BuildService
	DoctorService *services.DoctorService
	ConfigLoader  *config.FileLoader
	HistoryStore  ports.HistoryRepository
	LogSink       *logsink.FileSink
	Logger        ports.Logger
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.NewStd(verbose)
	toolsDir := filepath.Join(filesystem.UserHomeDir(), ".csforge", "tools", "dotnet")
	locator := toolchain.NewLocator(toolsDir)
	streamRunner := runner.New()
	historyStore := history.NewSQLiteStore()
	logSink := logsink.NewFileSink(cfg.Logs.Dir)

	// A broken user rules file degrades to the embedded defaults inside
	// NewClassifier; an error here means the embedded rules are unusable.
	classifier, err := diagnostics.NewClassifier(cfg.Diagnostics.RulesFile)
	if err != nil {
		return nil, err
	}

	buildService := &services.BuildService{
		ConfigProvider: cfgLoader,
		Toolchains:     locator,
		Scaffolder:     scaffold.New(),
		Runner:         streamRunner,
		Outcomes:       classifier,
		Installer:      installer.NewSDKInstaller(streamRunner, log, toolsDir),
		Logs:           logSink,
		History:        historyStore,
		Logger:         log,
	}

	doctorService := &services.DoctorService{
		ConfigProvider: cfgLoader,
		Toolchains:     locator,
		History:        historyStore,
	}

	return &Container{
		BuildService:  buildService,
		DoctorService: doctorService,
		ConfigLoader:  cfgLoader,
		HistoryStore:  historyStore,
		LogSink:       logSink,
		Logger:        log,
	}, nil
}
