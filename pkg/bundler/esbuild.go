package bundler

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/diagnostics"
	"github.com/sirupsen/logrus"
)

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ESBuild bundles presences with esbuild's incremental watch mode and, when
// a Checker is set, runs it after every build.
type ESBuild struct {
	Checker Checker
	logger  *logrus.Entry
}

// NewESBuild creates the esbuild bundler. checker may be nil.
func NewESBuild(checker Checker) *ESBuild {
	return &ESBuild{Checker: checker, logger: logging.NewLogger("bundler")}
}

// Watch creates a build context for the current entry map and starts
// watching. esbuild only watches files it read as inputs, so its own
// outputs never trigger a rebuild.
func (b *ESBuild) Watch(ctx context.Context, opts Options, obs Observer) (Watching, error) {
	outDir := opts.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(opts.Dir, outDir)
	}

	entries := opts.Entries()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	entryPoints := make([]api.EntryPoint, 0, len(names))
	files := make([]string, 0, len(names))
	for _, name := range names {
		entryPoints = append(entryPoints, api.EntryPoint{InputPath: entries[name], OutputPath: name})
		files = append(files, entries[name])
	}

	target, ok := targets[strings.ToLower(opts.Target)]
	if !ok {
		target = api.ES2020
	}
	sourcemap := api.SourceMapNone
	if opts.Sourcemap {
		sourcemap = api.SourceMapInline
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &esbuildWatching{cancel: cancel}
	run := &buildRun{
		bundler: b,
		ctx:     wctx,
		opts:    opts,
		outDir:  outDir,
		files:   files,
		obs:     obs,
		writer:  newOutputWriter(),
		logger:  b.logger.WithField("dir", opts.Dir),
	}

	buildCtx, ctxErr := api.Context(api.BuildOptions{
		AbsWorkingDir:       opts.Dir,
		EntryPointsAdvanced: entryPoints,
		Outdir:              outDir,
		Bundle:              true,
		Format:              api.FormatIIFE,
		Platform:            api.PlatformBrowser,
		Target:              target,
		Sourcemap:           sourcemap,
		Loader:              map[string]api.Loader{".ts": api.LoaderTS},
		LogLevel:            api.LogLevelSilent,
		Write:               false,
		Plugins: []api.Plugin{{
			Name:  "pmd-lifecycle",
			Setup: run.setup,
		}},
	})
	if ctxErr != nil {
		cancel()
		return nil, errors.New(errors.ErrCodeBundlerFailed, "failed to create build context").
			WithDetail("errors", messageTexts(ctxErr.Errors))
	}
	w.build = buildCtx

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		buildCtx.Dispose()
		cancel()
		return nil, errors.Wrap(err, errors.ErrCodeBundlerFailed, "failed to start watch mode")
	}
	run.logger.WithField("entries", names).Debug("Watching")
	return w, nil
}

type buildRun struct {
	bundler *ESBuild
	ctx     context.Context
	opts    Options
	outDir  string
	files   []string
	obs     Observer
	writer  *outputWriter
	logger  *logrus.Entry
}

func (r *buildRun) setup(build api.PluginBuild) {
	build.OnStart(func() (api.OnStartResult, error) {
		if r.ctx.Err() == nil {
			r.obs.OnCompileStart()
		}
		return api.OnStartResult{}, nil
	})
	build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
		if r.ctx.Err() != nil {
			return api.OnEndResult{}, nil
		}
		r.obs.OnAfterCompile(r.finish(result))
		return api.OnEndResult{}, nil
	})
}

// finish writes outputs and collects every diagnostic of one build.
func (r *buildRun) finish(result *api.BuildResult) []diagnostics.Diagnostic {
	diags := convertMessages(r.opts.Dir, result.Errors)

	if len(result.Errors) == 0 {
		for _, file := range result.OutputFiles {
			if _, err := r.writer.write(file.Path, file.Contents); err != nil {
				r.logger.WithError(err).Error("Failed to write output")
				diags = append(diags, diagnostics.Diagnostic{Message: err.Error()})
			}
		}
	}

	for _, name := range r.opts.CopyFiles {
		if _, err := r.writer.copy(filepath.Join(r.opts.Dir, name), filepath.Join(r.outDir, name)); err != nil {
			r.logger.WithError(err).WithField("file", name).Warn("Failed to copy asset")
		}
	}

	if r.bundler.Checker != nil {
		checked, err := r.bundler.Checker.Check(r.ctx, r.opts.Dir, r.files)
		if err != nil {
			if r.ctx.Err() == nil {
				r.logger.WithError(err).Warn("Type check did not run")
			}
		} else {
			diags = append(diags, checked...)
		}
	}
	return diags
}

// convertMessages maps esbuild errors onto diagnostics. esbuild columns are
// 0-based.
func convertMessages(dir string, messages []api.Message) []diagnostics.Diagnostic {
	diags := make([]diagnostics.Diagnostic, 0, len(messages))
	for _, m := range messages {
		d := diagnostics.Diagnostic{Message: m.Text}
		if strings.HasPrefix(m.Text, "Could not resolve") {
			d.Category = diagnostics.ModuleNotFoundError
		}
		if m.Location != nil {
			d.File = m.Location.File
			if d.File != "" && !filepath.IsAbs(d.File) {
				d.File = filepath.Join(dir, d.File)
			}
			d.Line = m.Location.Line
			d.Column = m.Location.Column + 1
		}
		diags = append(diags, d)
	}
	return diags
}

func messageTexts(messages []api.Message) []string {
	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Location != nil {
			texts = append(texts, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column+1, m.Text))
			continue
		}
		texts = append(texts, m.Text)
	}
	return texts
}

type esbuildWatching struct {
	build  api.BuildContext
	cancel context.CancelFunc

	suspendOnce sync.Once
	closeOnce   sync.Once
}

func (w *esbuildWatching) Suspend() {
	w.suspendOnce.Do(func() {
		w.cancel()
		w.build.Cancel()
	})
}

func (w *esbuildWatching) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.build.Dispose()
	})
	return nil
}
