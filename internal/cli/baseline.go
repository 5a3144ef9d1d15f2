// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// baseline.go - Baseline benchmark jobs and the local run archive.
//
// Command: baseline [subcommand]
// Aliases: bench
//
// Subcommands:
//
//	start (default)     Start a job on the kernel and follow its progress
//	history             List archived runs
//	show <id>           Print the report of an archived run
//	delete <id>         Remove an archived run
//
// Flags:
//
//	--sync              Run the benchmark in a single blocking request
//	--no-enforce        Do not cap answers at max_response_tokens
//	-n, --limit N       Rows shown by history (default 20)
//
// Ctrl+C while following a job stops watching it; the kernel keeps running
// the job.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/ifinspire/aigent/internal/benchmark"
	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/logging"
	"github.com/ifinspire/aigent/internal/session"
	"github.com/ifinspire/aigent/internal/storage"
)

// BaselineResult is the JSON form of a finished run.
type BaselineResult struct {
	JobID    string              `json:"job_id,omitempty"`
	Archived bool                `json:"archived"`
	Run      *kernel.BaselineRun `json:"run"`
}

// HandleBaseline handles the "baseline" command.
func HandleBaseline(args Args) error {
	rt, err := NewRuntime(args, logging.ToStderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	switch strings.ToLower(args.Subcommand) {
	case "", "start", "run":
		enforce := rt.Config.Baseline.EnforceMaxResponseTokens && !args.NoEnforce
		if args.Sync {
			return runBaselineSync(rt, args, enforce)
		}
		return followBaseline(rt, args, enforce)
	case "history", "list", "ls":
		return baselineHistory(rt, args)
	case "show":
		return baselineShow(rt, args)
	case "delete", "rm":
		return baselineDelete(rt, args)
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand, "unknown baseline subcommand",
			"aigent baseline [start|history|show|delete]")
	}
}

// =============================================================================
// RUNNING
// =============================================================================

func followBaseline(rt *Runtime, args Args, enforce bool) error {
	ctrl := rt.Controller()
	defer ctrl.Close()

	ctx, cancel := signalContext()
	defer cancel()

	updates, unsubscribe := ctrl.Subscribe()
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		printBaselineProgress(updates, args.Quiet || args.JSON)
	}()

	if err := ctrl.StartBaseline(ctx, enforce); err != nil {
		unsubscribe()
		<-printerDone
		return err
	}

	st, waitErr := ctrl.WaitBaseline(ctx)
	unsubscribe()
	<-printerDone

	if waitErr != nil || ctx.Err() != nil {
		ctrl.DisposeBaseline()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Stopped watching job %s; it keeps running on the kernel.\n", st.JobID)
		return nil
	}

	switch st.Phase {
	case benchmark.PhaseCompleted:
		return printBaselineResult(args, BaselineResult{
			JobID:    st.JobID,
			Archived: rt.Config.Baseline.Archive,
			Run:      st.Result,
		})
	case benchmark.PhaseFailed:
		return NewCommandError("baseline", "run", st.Error, nil)
	default:
		return NewCommandError("baseline", "run", st.Message, nil)
	}
}

// printBaselineProgress renders state updates until the channel closes. On a
// terminal the line is redrawn in place with a progress bar.
func printBaselineProgress(updates <-chan session.State, quiet bool) {
	tty := IsTTY()
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))
	lastMsg := ""
	drew := false

	for st := range updates {
		b := st.Baseline
		if quiet || b.Message == "" || b.Message == lastMsg {
			continue
		}
		lastMsg = b.Message
		if tty {
			fmt.Fprintf(os.Stderr, "\r\033[K%s %s", bar.ViewAs(b.Progress()), b.Message)
			drew = true
		} else {
			fmt.Fprintln(os.Stderr, b.Message)
		}
	}
	if drew {
		fmt.Fprintln(os.Stderr)
	}
}

func runBaselineSync(rt *Runtime, args Args, enforce bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	if !args.Quiet && !args.JSON {
		fmt.Fprintln(os.Stderr, "Running baseline benchmark (this can take several minutes)...")
	}
	started := time.Now()
	run, err := rt.Client.RunBaseline(ctx, enforce)
	if err == nil && run == nil {
		err = kernel.ErrEmptyResponse
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return NewCommandError("baseline", "run", "cancelled", err)
		}
		return err
	}
	rt.Log.Info("synchronous baseline finished", "elapsed", time.Since(started))

	res := BaselineResult{Run: run}
	if rt.Config.Baseline.Archive {
		if a, err := rt.Archive(); err != nil {
			rt.Log.Warn("baseline archive unavailable", "error", err)
		} else if id, err := a.Save(context.Background(), "", run); err != nil {
			rt.Log.Warn("archiving baseline run failed", "error", err)
		} else {
			res.JobID = id
			res.Archived = true
		}
	}
	return printBaselineResult(args, res)
}

func printBaselineResult(args Args, res BaselineResult) error {
	if args.JSON {
		return NewJSONResponse("baseline", res).Print()
	}
	fmt.Println(TitleStyle.Render("Baseline Report"))
	fmt.Print(benchmark.FormatReport(res.Run))
	if res.Archived && res.JobID != "" && !args.Quiet {
		fmt.Println()
		fmt.Println(DimStyle.Render("Archived as " + res.JobID))
	}
	return nil
}

// =============================================================================
// ARCHIVE
// =============================================================================

func baselineHistory(rt *Runtime, args Args) error {
	a, err := rt.Archive()
	if err != nil {
		return err
	}
	runs, err := a.List(context.Background(), args.Limit)
	if err != nil {
		return err
	}
	if args.JSON {
		if runs == nil {
			runs = []storage.RunMeta{}
		}
		return NewJSONResponse("baseline history", runs).Print()
	}
	fmt.Print(storage.FormatRunList(runs))
	return nil
}

func baselineShow(rt *Runtime, args Args) error {
	a, id, err := archivedRunID(rt, args)
	if err != nil {
		return err
	}
	run, err := a.Get(context.Background(), id)
	if err != nil {
		return err
	}
	return printBaselineResult(args, BaselineResult{JobID: run.ID, Run: run.Run})
}

func baselineDelete(rt *Runtime, args Args) error {
	a, id, err := archivedRunID(rt, args)
	if err != nil {
		return err
	}
	ok, err := RequireConfirmation("delete archived run "+id, ConfirmationOptions{Yes: args.Yes, JSONMode: args.JSON})
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled.")
		return nil
	}
	if err := a.Delete(context.Background(), id); err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("baseline delete", map[string]string{"deleted": id}).Print()
	}
	fmt.Println(SuccessStyle.Render("Deleted run " + id))
	return nil
}

// archivedRunID opens the archive and resolves the run id argument, which
// may be a unique prefix as shown by history.
func archivedRunID(rt *Runtime, args Args) (*storage.Archive, string, error) {
	if len(args.Raw) == 0 {
		return nil, "", NewValidationErrorWithExample("id", "", "missing run id", "aigent baseline show <id>")
	}
	a, err := rt.Archive()
	if err != nil {
		return nil, "", err
	}
	runs, err := a.List(context.Background(), 0)
	if err != nil {
		return nil, "", err
	}
	id, err := resolveRunID(args.Raw[0], runs)
	return a, id, err
}

func resolveRunID(arg string, runs []storage.RunMeta) (string, error) {
	var match string
	for _, r := range runs {
		if r.ID == arg {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, arg) {
			if match != "" {
				return "", NewValidationError("id", arg, "ambiguous run id prefix")
			}
			match = r.ID
		}
	}
	if match == "" {
		return "", &NotFoundError{Resource: "baseline run", ID: arg}
	}
	return match, nil
}
