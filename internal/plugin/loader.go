package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"

	"github.com/chronicle-labs/chronicle/internal/actions"
)

// Plugin entry points a .star file must export.
const (
	exportName  = "name"
	exportProbe = "probe"
	exportDo    = "do"
)

// Loader scans a directory for .star actioner plugins.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a loader for the given plugins directory.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dir: dir, logger: logger}
}

// Load executes every .star file in the plugins directory and registers the
// resulting actioners. A file that fails to load or is missing its entry
// points is logged and skipped; one broken plugin never takes the others
// down. Returns the number of plugins registered.
func (l *Loader) Load(reg *actions.Registry) (int, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			// No plugins directory is fine.
			return 0, nil
		}
		return 0, fmt.Errorf("failed to access plugins directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("plugins path is not a directory: %s", l.dir)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*.star"))
	if err != nil {
		return 0, fmt.Errorf("failed to scan plugins directory: %w", err)
	}

	loaded := 0
	for _, file := range files {
		actioner, err := l.loadFile(file)
		if err != nil {
			l.logger.Warn("skipping plugin", "file", filepath.Base(file), "error", err)
			continue
		}
		reg.Register(actioner)
		l.logger.Debug("loaded plugin", "file", filepath.Base(file), "name", actioner.Name())
		loaded++
	}
	return loaded, nil
}

func (l *Loader) loadFile(path string) (*StarActioner, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a Glob within the plugins directory
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), ".star")
	thread := &starlark.Thread{
		Name: fmt.Sprintf("load:%s", name),
		Print: func(_ *starlark.Thread, msg string) {
			l.logger.Info("plugin print", "plugin", name, "msg", msg)
		},
	}

	globals, err := starlark.ExecFile(thread, path, content, nil) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		return nil, fmt.Errorf("execution error: %w", err)
	}

	if v, ok := globals[exportName]; ok {
		s, ok := v.(starlark.String)
		if !ok {
			return nil, fmt.Errorf("%q export must be a string, got %s", exportName, v.Type())
		}
		name = string(s)
	}

	probe, err := exportedFunc(globals, exportProbe)
	if err != nil {
		return nil, err
	}
	do, err := exportedFunc(globals, exportDo)
	if err != nil {
		return nil, err
	}

	return &StarActioner{name: name, probe: probe, do: do, logger: l.logger}, nil
}

func exportedFunc(globals starlark.StringDict, name string) (starlark.Callable, error) {
	v, ok := globals[name]
	if !ok {
		return nil, fmt.Errorf("missing %q export", name)
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%q export must be callable, got %s", name, v.Type())
	}
	return fn, nil
}

// StarActioner adapts a loaded plugin to the actioner interface. Each call
// runs on a fresh Starlark thread.
type StarActioner struct {
	name   string
	probe  starlark.Callable
	do     starlark.Callable
	logger *slog.Logger
}

// Name implements actions.Actioner.
func (a *StarActioner) Name() string { return a.name }

// Probe implements actions.Actioner. A failing probe is logged and offers
// nothing.
func (a *StarActioner) Probe(sel actions.Selection, actx actions.Context) []string {
	obj, err := selectionToStarlark(sel)
	if err != nil {
		a.logger.Warn("plugin probe skipped", "plugin", a.name, "error", err)
		return nil
	}

	result, err := starlark.Call(a.thread("probe"), a.probe, starlark.Tuple{obj, a.contextDict(actx)}, nil)
	if err != nil {
		a.logger.Warn("plugin probe failed", "plugin", a.name, "error", err)
		return nil
	}
	names, err := stringList(result)
	if err != nil {
		a.logger.Warn("plugin probe returned bad value", "plugin", a.name, "error", err)
		return nil
	}
	return names
}

// Do implements actions.Actioner. A do function may return None, a message
// string, or a dict {"message": str, "level": "info"|"warn"|"error"};
// messages are routed to the context's notifier.
func (a *StarActioner) Do(action string, sel actions.Selection, actx actions.Context) error {
	obj, err := selectionToStarlark(sel)
	if err != nil {
		return fmt.Errorf("plugin %s: %w", a.name, err)
	}

	args := starlark.Tuple{starlark.String(action), obj, a.contextDict(actx)}
	result, err := starlark.Call(a.thread("do"), a.do, args, nil)
	if err != nil {
		return fmt.Errorf("plugin %s: %w", a.name, err)
	}
	return a.report(result, actx.Notifier())
}

// report interprets a do return value and forwards any message it carries.
func (a *StarActioner) report(result starlark.Value, n actions.Notifier) error {
	v, err := starlarkToGo(result)
	if err != nil {
		return fmt.Errorf("plugin %s returned a bad value: %w", a.name, err)
	}
	switch out := v.(type) {
	case nil:
		return nil
	case string:
		if out != "" {
			n.Info(out)
		}
		return nil
	case map[string]any:
		msg, _ := out["message"].(string)
		if msg == "" {
			return fmt.Errorf("plugin %s returned a dict without a message", a.name)
		}
		level, _ := out["level"].(string)
		switch level {
		case "", "info":
			n.Info(msg)
		case "warn":
			n.Warn(msg)
		case "error":
			n.Error(msg)
		default:
			return fmt.Errorf("plugin %s returned unknown level %q", a.name, level)
		}
		return nil
	default:
		return fmt.Errorf("plugin %s returned unsupported result type %T", a.name, v)
	}
}

func (a *StarActioner) thread(op string) *starlark.Thread {
	return &starlark.Thread{
		Name: fmt.Sprintf("%s:%s", a.name, op),
		Print: func(_ *starlark.Thread, msg string) {
			a.logger.Info("plugin print", "plugin", a.name, "msg", msg)
		},
	}
}

// contextDict exposes a read-only view of the action context. Capabilities
// stay on the Go side; plugins see plain facts.
func (a *StarActioner) contextDict(actx actions.Context) *starlark.Dict {
	dict := starlark.NewDict(2)
	_ = dict.SetKey(starlark.String("save_dir"), starlark.String(actx.SaveDir()))
	if s := actx.Store(); s != nil {
		_ = dict.SetKey(starlark.String("store_uri"), starlark.String(s.URI()))
	}
	return dict
}
