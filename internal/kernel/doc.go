// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kernel provides the HTTP client for the AIgentOS kernel API.
//
// The kernel is the REST service that owns conversations, runs inference
// against the local model, records per-exchange telemetry and executes
// baseline benchmark jobs. This package only speaks its wire protocol; all
// client-side state lives in the session package.
//
// # Key Types
//
//   - Client: HTTP client with per-request timeouts and an optional rate limit
//   - ClientError: categorized error carrying the server's detail message
//   - ChatResponse, PerformanceMetrics: a chat turn and its telemetry
//   - BaselineJobStatus: progress of an asynchronous baseline job
//
// # Error Convention
//
// Non-2xx responses carry an optional {"detail": ...} body which becomes the
// error message; without it the HTTP status text is used. Empty bodies and
// 204 responses decode to a nil value rather than an error.
//
// # Usage
//
//	client := kernel.NewClientWithConfig(&kernel.ClientConfig{BaseURL: url})
//	health, err := client.Health(ctx)
//	resp, err := client.Chat(ctx, kernel.ChatRequest{Message: "hi"})
package kernel
