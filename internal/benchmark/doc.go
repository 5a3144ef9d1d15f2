// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package benchmark monitors baseline benchmark jobs executed by the kernel.
//
// A baseline job is a server-side suite of standardized latency and token
// usage calls. The client starts it, polls its status at a fixed interval and
// stops polling as soon as the job completes or fails. Nothing is cancelled on
// the server; disposing a Monitor only stops observation.
//
// # State Machine
//
//	idle -> starting -> running -> completed | failed
//	           |
//	           +-> idle (job creation failed)
//
// completed and failed are terminal for a run: no poll is issued after
// either is observed, and each emits exactly one terminal event.
//
// # Key Types
//
//   - Monitor: owns one job's lifecycle at a time
//   - State: snapshot of the monitor
//   - Event: a human-readable status line emitted on every transition
//
// # Usage
//
//	mon := benchmark.NewMonitor(client, benchmark.Options{})
//	if err := mon.Start(ctx, true); err != nil {
//	    return err
//	}
//	final, err := mon.Wait(ctx)
//	fmt.Println(benchmark.FormatReport(final.Result))
package benchmark
