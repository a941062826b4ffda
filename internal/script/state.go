package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 30 * time.Second

// Logger is the logging surface used by the script runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}

// State wraps one Lua interpreter bound to an editor.
//
// gopher-lua's LState is not goroutine-safe; the mutex serialises runs.
type State struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool

	editor   Editor
	exporter Exporter
	timeout  time.Duration
	out      io.Writer
	logger   Logger
}

// Option configures a State.
type Option func(*State)

// WithTimeout sets the per-run time limit. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *State) {
		s.timeout = d
	}
}

// WithOutput sets where print writes.
func WithOutput(w io.Writer) Option {
	return func(s *State) {
		if w != nil {
			s.out = w
		}
	}
}

// WithExporter enables canvas.export.
func WithExporter(x Exporter) Option {
	return func(s *State) {
		s.exporter = x
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a sandboxed interpreter with the canvas module installed.
func New(editor Editor, opts ...Option) *State {
	s := &State{
		editor:  editor,
		timeout: DefaultTimeout,
		out:     os.Stdout,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	s.L.SetGlobal("print", s.L.NewFunction(s.print))
	s.L.SetGlobal("canvas", s.L.SetFuncs(s.L.NewTable(), s.canvasFuncs()))
	return s
}

// openSafeLibraries opens the libraries that cannot reach the host.
// io, os, debug and package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// DoString runs code as a chunk named name.
func (s *State) DoString(ctx context.Context, name, code string) error {
	return s.run(ctx, name, func(L *lua.LState) (*lua.LFunction, error) {
		return L.Load(strings.NewReader(code), name)
	})
}

// DoFile runs the script at path.
func (s *State) DoFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Chunk: path, Err: err}
	}
	return s.DoString(ctx, path, string(data))
}

func (s *State) run(ctx context.Context, name string, load func(*lua.LState) (*lua.LFunction, error)) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Chunk: name, Err: fmt.Errorf("lua panic: %v", r)}
		}
	}()

	fn, err := load(s.L)
	if err != nil {
		return &Error{Chunk: name, Err: err}
	}

	start := time.Now()
	s.L.Push(fn)
	if err := s.L.PCall(0, lua.MultRet, nil); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		} else if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return &Error{Chunk: name, Err: err}
	}
	s.L.SetTop(0)
	s.logger.Debug("ran %s in %s", name, time.Since(start))
	return nil
}

// Global returns a global value converted to Go. Tables become
// map[string]any or []any, numbers float64.
func (s *State) Global(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	return fromLua(s.L.GetGlobal(name))
}

// Close releases the interpreter.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

func (s *State) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(s.out, strings.Join(parts, "\t"))
	return 0
}

func fromLua(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if n := v.Len(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLua(v.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) {
			out[k.String()] = fromLua(val)
		})
		return out
	default:
		return nil
	}
}
