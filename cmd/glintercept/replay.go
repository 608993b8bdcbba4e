package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/api"
	"github.com/dshills/glintercept/internal/filter"
	"github.com/dshills/glintercept/internal/filters"
	"github.com/dshills/glintercept/internal/keys"
)

// replayStats counts what happened to replayed calls.
type replayStats struct {
	Calls      int
	Bypassed   int
	Suppressed int
	Skipped    int
	Executed   int
}

// replay reads one command per line from r until EOF or ctx is done.
//
// A line is either a call ("glDrawArrays 4 0 3"), a key event
// ("key C-A-S-T"), an activation request ("activate trace",
// "deactivate trace") or a variable setting ("set trace key_toggle C-F5").
// Blank lines and lines starting with # are ignored. Malformed lines are
// logged and skipped.
func replay(ctx context.Context, rt *filter.Runtime, builtins *filters.Builtins, r io.Reader) (replayStats, error) {
	var stats replayStats
	logger := rt.Logger()
	table := rt.Table()
	execute := func(*api.Call) { stats.Executed++ }

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		if err := command(rt, builtins, fields); !errors.Is(err, errNotCommand) {
			if err != nil {
				stats.Skipped++
				logger.Warn("replay command failed", zap.Int("line", lineNo), zap.Error(err))
			}
			continue
		}

		op, ok := table.Lookup(fields[0])
		if !ok {
			stats.Skipped++
			logger.Warn("unknown operation", zap.Int("line", lineNo), zap.String("op", fields[0]))
			continue
		}

		call := api.NewCall(op, parseArgs(fields[1:])...)
		call.Real = execute
		stats.Calls++

		if rt.Bypass(op) {
			stats.Bypassed++
			call.Invoke()
			continue
		}
		if !rt.Dispatch(call) {
			stats.Suppressed++
		}
	}
	return stats, scanner.Err()
}

var errNotCommand = errors.New("not a command")

// command runs a host command line. It returns errNotCommand if the line
// is a call.
func command(rt *filter.Runtime, builtins *filters.Builtins, fields []string) error {
	switch fields[0] {
	case "key":
		if len(fields) != 2 {
			return fmt.Errorf("usage: key <binding>")
		}
		b, err := keys.Parse(fields[1])
		if err != nil {
			return err
		}
		builtins.HandleKey(b.Event(), !b.Release)
		return nil
	case "activate", "deactivate":
		if len(fields) != 2 {
			return fmt.Errorf("usage: %s <filter-set>", fields[0])
		}
		if fields[0] == "activate" {
			return rt.Activate(fields[1])
		}
		return rt.Deactivate(fields[1])
	case "set":
		if len(fields) < 4 {
			return fmt.Errorf("usage: set <filter-set> <variable> <value>")
		}
		return rt.Configure(fields[1], fields[2], strings.Join(fields[3:], " "))
	default:
		return errNotCommand
	}
}

// parseArgs converts call arguments to integers, floats or strings.
func parseArgs(fields []string) []any {
	args := make([]any, len(fields))
	for i, f := range fields {
		if n, err := strconv.ParseInt(f, 0, 64); err == nil {
			args[i] = n
		} else if x, err := strconv.ParseFloat(f, 64); err == nil {
			args[i] = x
		} else {
			args[i] = f
		}
	}
	return args
}
