/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package backend decides which DataStore implementation serves a deployment.
package backend

import (
	"fmt"
	"strings"
)

// Kind names a backend implementation.
type Kind string

const (
	Networked Kind = "networked"
	Emulated  Kind = "emulated"
)

// Decision is the outcome of Choose. Warning is non-empty when the inputs
// were missing or not understood and the networked default was applied.
type Decision struct {
	Backend Kind
	Reason  string
	Warning string
}

var overrides = map[string]Kind{
	"dynamodb":  Networked,
	"ddb":       Networked,
	"network":   Networked,
	"networked": Networked,
	"aws":       Networked,
	"remote":    Networked,

	"memory":    Emulated,
	"in-memory": Emulated,
	"inmemory":  Emulated,
	"emulator":  Emulated,
	"emulated":  Emulated,
	"local":     Emulated,
	"mock":      Emulated,
}

var stages = map[string]Kind{
	"prod":       Networked,
	"production": Networked,
	"staging":    Networked,
	"stage":      Networked,
	"preprod":    Networked,
	"live":       Networked,

	"dev":         Emulated,
	"development": Emulated,
	"test":        Emulated,
	"testing":     Emulated,
	"local":       Emulated,
	"ci":          Emulated,
}

// Choose picks a backend from an explicit override and the deployment
// stage. A recognised override wins. A set but unrecognised override
// selects Networked with a warning, whatever the stage. With no override a
// recognised stage decides; anything else falls back to Networked with a
// warning.
func Choose(override, stage string) Decision {
	o := normalize(override)
	s := normalize(stage)

	d := Decision{Backend: Networked, Reason: "default"}
	if o != "" {
		if kind, ok := overrides[o]; ok {
			return Decision{Backend: kind, Reason: fmt.Sprintf("backend override %q", override)}
		}
		d.Warning = fmt.Sprintf("unrecognised backend override %q, defaulting to %s", override, Networked)
		return d
	}
	if kind, ok := stages[s]; ok {
		return Decision{Backend: kind, Reason: fmt.Sprintf("stage %q", stage)}
	}

	switch {
	case s != "":
		d.Warning = fmt.Sprintf("unrecognised stage %q, defaulting to %s", stage, Networked)
	default:
		d.Warning = fmt.Sprintf("no backend override or stage set, defaulting to %s", Networked)
	}
	return d
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
