// SPDX-License-Identifier: Unlicense OR MIT

//go:build debug
// +build debug

// Package debug provides categorized debug logging.
// Build with -tags debug to enable it.
package debug

import (
	"log"
	"os"
	"strings"
	"sync"
)

// Enabled indicates whether debug logging is active.
const Enabled = true

// Category represents a debug logging category.
type Category string

const (
	DND      Category = "DND"      // drag session dispatch and drop routing
	PLATFORM Category = "PLATFORM" // native callback glue
	REGISTRY Category = "REGISTRY" // session registry state
)

var (
	mu      sync.RWMutex
	enabled = map[Category]bool{
		DND:      true,
		PLATFORM: true,
		REGISTRY: true,
	}
	logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
)

func init() {
	// WRY_DEBUG selects categories: a comma separated list, "all" or
	// "none".
	env := strings.ToUpper(os.Getenv("WRY_DEBUG"))
	if env == "" || env == "ALL" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	for cat := range enabled {
		enabled[cat] = false
	}
	if env == "NONE" {
		return
	}
	for _, cat := range strings.Split(env, ",") {
		enabled[Category(strings.TrimSpace(cat))] = true
	}
}

// Log logs a debug message for the given category.
func Log(cat Category, format string, args ...interface{}) {
	mu.RLock()
	on := enabled[cat]
	mu.RUnlock()
	if !on {
		return
	}
	logger.Printf("[%s] "+format, append([]interface{}{cat}, args...)...)
}

// IsEnabled reports whether a category is enabled.
func IsEnabled(cat Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled[cat]
}
