// Package tools exposes the task store as named operations with declared
// argument schemas and uniform results.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/colonyops/taskman/internal/core/logging"
)

// HandlerFunc executes a tool with validated arguments. A returned error is
// converted into a failed Result by the dispatcher.
type HandlerFunc func(ctx context.Context, args Args) (Result, error)

// Tool is a named operation with a closed set of argument fields.
type Tool struct {
	Name        string
	Description string
	Fields      []Field
	Handler     HandlerFunc
}

// Info is the published description of a tool.
type Info struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type registered struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Dispatcher routes invocations to registered tools. Invocations are
// serialised: at most one handler runs at a time.
type Dispatcher struct {
	mu    sync.Mutex
	tools map[string]registered
	order []string
	log   zerolog.Logger
	now   func() time.Time
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		tools: make(map[string]registered),
		log:   logger.Hook(logging.ContextHook{}),
		now:   time.Now,
	}
}

// Register adds a tool. Names must be unique.
func (d *Dispatcher) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", tool.Name)
	}

	sch, err := compileSchema(tool.Name, tool.Fields)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}

	d.tools[tool.Name] = registered{tool: tool, schema: sch}
	d.order = append(d.order, tool.Name)
	return nil
}

// Tools returns the catalog in registration order.
func (d *Dispatcher) Tools() []Info {
	d.mu.Lock()
	defer d.mu.Unlock()

	infos := make([]Info, 0, len(d.order))
	for _, name := range d.order {
		t := d.tools[name].tool
		infos = append(infos, Info{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: Schema(t.Fields),
		})
	}
	return infos
}

// Invoke runs the named tool. It never panics and never returns an error:
// every failure is reported in the Result.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) (res Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	invocationID := uuid.NewString()
	ctx = logging.WithInvocationID(ctx, invocationID)
	ctx = logging.WithTool(ctx, name)

	start := d.now()
	defer func() {
		d.logOutcome(ctx, res, d.now().Sub(start))
	}()

	r, ok := d.tools[name]
	if !ok {
		return Failure(KindUnknownTool, fmt.Sprintf("unknown tool %q (available: %s)", name, d.available()))
	}

	validated, err := validateArgs(r.schema, args)
	if err != nil {
		return FromError(fmt.Errorf("%s: %w", name, err))
	}

	return d.call(ctx, r.tool, Args(validated))
}

// call runs the handler, converting panics into Internal failures.
func (d *Dispatcher) call(ctx context.Context, tool Tool, args Args) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error().
				Ctx(ctx).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("tool handler panicked")
			res = Failure(KindInternal, fmt.Sprintf("%s: internal error", tool.Name))
		}
	}()

	if err := ctx.Err(); err != nil {
		return FromError(err)
	}

	res, err := tool.Handler(ctx, args)
	if err != nil {
		return FromError(err)
	}
	return res
}

func (d *Dispatcher) logOutcome(ctx context.Context, res Result, elapsed time.Duration) {
	if res.OK {
		d.log.Info().
			Ctx(ctx).
			Dur("duration", elapsed).
			Int("tasks", len(res.Tasks)).
			Msg("tool invoked")
		return
	}

	event := d.log.Warn()
	if res.Error != nil && (res.Error.Kind == KindStorageIOError || res.Error.Kind == KindInternal) {
		event = d.log.Error()
	}

	kind := KindInternal
	if res.Error != nil {
		kind = res.Error.Kind
	}

	event.
		Ctx(ctx).
		Dur("duration", elapsed).
		Str("kind", string(kind)).
		Str("detail", res.Message).
		Msg("tool failed")
}

// available lists the registered tool names. Callers hold d.mu.
func (d *Dispatcher) available() string {
	names := make([]string, 0, len(d.tools))
	for name := range d.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
