/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides version information for the receiver.
package version

// UpstreamVersion is the upstream OpenWebRX+ base version.
// This is set at build time via ldflags:
//
//	-X github.com/doccodyblue/openwebrx/internal/version.UpstreamVersion=X.Y.Z
var UpstreamVersion = "1.2.105"

// ForkSuffix identifies this fork.
const ForkSuffix = "-DG7LAN"

// String returns the full user-facing version string.
func String() string {
	return "v" + UpstreamVersion + ForkSuffix
}
