package cli

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fedgate/internal/config"
	"fedgate/internal/federation"
	"fedgate/internal/gate"
	"fedgate/internal/jfrog"
	"fedgate/internal/output"
	"fedgate/internal/search"
)

// buildLogger writes structured diagnostics to stderr so stdout stays clean
// for findings and machine-readable output.
func buildLogger(verbose bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

// buildConfigSource picks the federation configuration source: a local file
// when --config-file is set, otherwise a repo path on the local deployment.
func buildConfigSource(cfg *config.Config, log *zap.Logger) (gate.ConfigSource, error) {
	if cfg.Platform.ConfigFile != "" {
		return &gate.FileConfigSource{Path: cfg.Platform.ConfigFile, Log: log}, nil
	}
	if cfg.Platform.ConfigRepoPath == "" {
		return nil, fmt.Errorf("federation configuration location is required (set --config, FEDGATE_CONFIG, or --config-file)")
	}
	repo, path, ok := gate.SplitRepoPath(cfg.Platform.ConfigRepoPath)
	if !ok {
		return nil, fmt.Errorf("invalid --config value %q (expected repo/path.json)", cfg.Platform.ConfigRepoPath)
	}
	client, err := localClient(cfg)
	if err != nil {
		return nil, err
	}
	return &gate.RemoteConfigSource{Client: client, Repo: repo, Path: path, Log: log}, nil
}

// localClient connects to the deployment fedgate runs next to.
func localClient(cfg *config.Config) (*jfrog.Client, error) {
	if cfg.Platform.URL == "" {
		return nil, fmt.Errorf("platform URL is required (set --url or FEDGATE_URL)")
	}
	return jfrog.NewClient(cfg.Platform.URL, cfg.Platform.Token,
		jfrog.WithVerbose(cfg.Runtime.Verbose, nil),
		jfrog.WithTimeout(cfg.Runtime.Timeout))
}

// finderFactory connects to federation targets on demand, reusing the same
// access token across the federation.
func finderFactory(cfg *config.Config) search.FinderFactory {
	return func(target federation.Target) (search.Finder, error) {
		return jfrog.NewClient(target.URL, cfg.Platform.Token,
			jfrog.WithVerbose(cfg.Runtime.Verbose, nil),
			jfrog.WithTimeout(cfg.Runtime.Timeout))
	}
}

func buildSearcher(cfg *config.Config, log *zap.Logger) *search.Searcher {
	return search.NewSearcher(finderFactory(cfg), cfg.Runtime.Concurrency, log)
}

func buildGate(cfg *config.Config, log *zap.Logger) (*gate.Gate, error) {
	source, err := buildConfigSource(cfg, log)
	if err != nil {
		return nil, err
	}
	return gate.New(source, buildSearcher(cfg, log), log)
}

func setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, cfg.Output.ConsoleFormat)); err != nil {
			_ = outMgr.Close()
			return nil, err
		}
	}

	// File sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			_ = outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			_ = outMgr.Close()
			return nil, err
		}
	}

	// Report sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			_ = outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			_ = outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}
