package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/colonyops/taskman/internal/present"
	"github.com/colonyops/taskman/internal/tools"
)

const prompt = "taskman> "

// StorageFailure ends the interactive loop after a storage fault.
type StorageFailure struct {
	Detail string
}

func (e *StorageFailure) Error() string {
	return "storage failure: " + e.Detail
}

// REPL reads tool invocations line by line and prints their results.
type REPL struct {
	Dispatcher *tools.Dispatcher
	Printer    *present.Printer
	In         io.Reader

	// Notices are printed between commands, e.g. external store changes.
	Notices <-chan string
}

// Run processes lines until quit, end of input or a storage fault.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	notices := r.Notices

	r.prompt()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
			r.Printer.Notice("\n%s", msg)
			r.prompt()

		case line, ok := <-lines:
			if !ok {
				r.Printer.Notice("")
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}

			done, err := r.handle(ctx, strings.TrimSpace(line))
			if err != nil || done {
				return err
			}
			r.prompt()
		}
	}
}

func (r *REPL) prompt() {
	_, _ = io.WriteString(r.Printer.Writer(), prompt)
}

// handle runs one line. done reports that the user asked to leave.
func (r *REPL) handle(ctx context.Context, line string) (done bool, err error) {
	switch strings.ToLower(line) {
	case "":
		return false, nil
	case "quit", "exit", "q":
		r.Printer.Notice("Goodbye")
		return true, nil
	case "help", "?":
		return false, r.Printer.Help(present.HelpMarkdown(r.Dispatcher.Tools()))
	case "tools":
		for _, info := range r.Dispatcher.Tools() {
			r.Printer.Notice("%-14s %s", info.Name, info.Description)
		}
		return false, nil
	}

	name, args, perr := ParseInvocation(line)
	if perr != nil {
		return false, r.Printer.Result(tools.Failure(tools.KindInvalidArgument, fmt.Sprintf("cannot parse %q: %v", line, perr)))
	}

	res := r.Dispatcher.Invoke(ctx, name, args)
	if err := r.Printer.Result(res); err != nil {
		return false, err
	}

	if !res.OK && res.Error != nil && res.Error.Kind == tools.KindStorageIOError {
		return true, &StorageFailure{Detail: res.Error.Detail}
	}
	return false, nil
}
