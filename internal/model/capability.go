// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// CapabilityStatus is the state of a background operation.
type CapabilityStatus string

const (
	CapabilityProcessing CapabilityStatus = "processing"
	CapabilitySuccess    CapabilityStatus = "success"
	CapabilityError      CapabilityStatus = "error"
)

// CapabilityUpdate is an activity-feed entry for an in-flight or finished
// operation. It lives only for the current session.
type CapabilityUpdate struct {
	ID        string
	Title     string
	Detail    string
	Status    CapabilityStatus
	StartedAt time.Time
	UpdatedAt time.Time
}

// NewCapability starts a processing entry.
func NewCapability(title, detail string) CapabilityUpdate {
	now := time.Now()
	return CapabilityUpdate{
		ID:        uuid.NewString(),
		Title:     title,
		Detail:    detail,
		Status:    CapabilityProcessing,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Finish returns a copy moved to a terminal status.
func (c CapabilityUpdate) Finish(status CapabilityStatus, detail string) CapabilityUpdate {
	c.Status = status
	if detail != "" {
		c.Detail = detail
	}
	c.UpdatedAt = time.Now()
	return c
}

// Done reports whether the operation has finished.
func (c CapabilityUpdate) Done() bool {
	return c.Status != CapabilityProcessing
}
