// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package tfcreviews keeps The Feedback Company review summaries for a
// multi-store shop in sync with its configuration store.
package tfcreviews

import (
	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 0,
		Minor: 1,
		Patch: 0,
		Build: semver.Commit(),
	}
)

func Version() semver.Version {
	return version
}
