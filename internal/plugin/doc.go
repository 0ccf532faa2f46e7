// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package plugin tracks whether the user's companion CAD plugin is online.
//
// Derive turns the backend's raw flags into a Status. Poller fetches the
// status once on start and then on a fixed cadence (two minutes by
// default), with a throttled manual Refresh. A poller must be stopped when
// the user signs out so that no periodic work runs against a stale
// identity.
package plugin
