// Package health runs the environment checks reported by mledit status.
//
// Checks:
//   - configuration validity
//   - document readable and matched by the rules
//   - schema file compiles
//   - log directory writable
//   - external editor command on PATH
package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"mledit/internal/config"
	"mledit/internal/content"
	"mledit/internal/document"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component works with reduced function.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component does not work.
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown indicates the component has not been checked.
	StatusUnknown Status = "unknown"
)

// CheckResult represents the result of a health check.
type CheckResult struct {
	Status   Status                 `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Duration time.Duration          `json:"duration_ns"`
	Error    string                 `json:"error,omitempty"`
}

// Check is a function that performs a health check.
type Check func(ctx context.Context) CheckResult

// Component represents a health-checkable component.
type Component struct {
	Name     string
	Critical bool // failure makes the overall status unhealthy
	Check    Check
	Timeout  time.Duration
}

// Checker manages health checks.
type Checker struct {
	mu         sync.RWMutex
	components map[string]*Component
	results    map[string]CheckResult
}

// NewChecker creates a new Checker.
func NewChecker() *Checker {
	return &Checker{
		components: make(map[string]*Component),
		results:    make(map[string]CheckResult),
	}
}

// Register registers a health check component.
func (c *Checker) Register(component *Component) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if component.Timeout == 0 {
		component.Timeout = 5 * time.Second
	}
	c.components[component.Name] = component
	c.results[component.Name] = CheckResult{Status: StatusUnknown}
}

// RegisterFunc registers a check function.
func (c *Checker) RegisterFunc(name string, critical bool, check Check) {
	c.Register(&Component{Name: name, Critical: critical, Check: check})
}

// Names returns the registered component names in order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs all registered health checks concurrently.
func (c *Checker) Check(ctx context.Context) map[string]CheckResult {
	c.mu.RLock()
	components := make([]*Component, 0, len(c.components))
	for _, comp := range c.components {
		components = append(components, comp)
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(components))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, comp := range components {
		wg.Add(1)
		go func(comp *Component) {
			defer wg.Done()
			result := run(ctx, comp)

			mu.Lock()
			results[comp.Name] = result
			mu.Unlock()

			c.mu.Lock()
			c.results[comp.Name] = result
			c.mu.Unlock()
		}(comp)
	}
	wg.Wait()
	return results
}

func run(ctx context.Context, comp *Component) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, comp.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan CheckResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- CheckResult{
					Status:  StatusUnhealthy,
					Message: "check panicked",
					Error:   fmt.Sprintf("%v", r),
				}
			}
		}()
		done <- comp.Check(checkCtx)
	}()

	var result CheckResult
	select {
	case result = <-done:
	case <-checkCtx.Done():
		result = CheckResult{
			Status:  StatusUnhealthy,
			Message: "check timed out",
			Error:   checkCtx.Err().Error(),
		}
	}
	result.Duration = time.Since(start)
	return result
}

// OverallStatus returns the aggregated status of the last results.
func (c *Checker) OverallStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hasUnknown := false
	hasDegraded := false
	for name, result := range c.results {
		comp := c.components[name]
		if comp == nil {
			continue
		}
		switch result.Status {
		case StatusUnhealthy:
			if comp.Critical {
				return StatusUnhealthy
			}
			hasDegraded = true
		case StatusDegraded:
			hasDegraded = true
		case StatusUnknown:
			if comp.Critical {
				hasUnknown = true
			}
		}
	}

	if hasUnknown {
		return StatusUnknown
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

func healthy(msg string, details map[string]interface{}) CheckResult {
	return CheckResult{Status: StatusHealthy, Message: msg, Details: details}
}

func failed(status Status, msg string, err error) CheckResult {
	r := CheckResult{Status: status, Message: msg}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// ConfigCheck validates cfg.
func ConfigCheck(cfg *config.Config) Check {
	return func(ctx context.Context) CheckResult {
		if err := cfg.Validate(); err != nil {
			return failed(StatusUnhealthy, "configuration invalid", err)
		}
		return healthy("configuration valid", map[string]interface{}{
			"interval": cfg.ScanInterval().String(),
		})
	}
}

// DocumentCheck reports how many elements the rules match in the document
// returned by open. A document with no matches is degraded: the rules
// probably no longer fit the host markup.
func DocumentCheck(open func() (document.Document, error)) Check {
	return func(ctx context.Context) CheckResult {
		doc, err := open()
		if err != nil {
			return failed(StatusUnhealthy, "document unreadable", err)
		}
		fields, cells := len(doc.Fields()), len(doc.Cells())
		details := map[string]interface{}{"fields": fields, "cells": cells}
		if fields+cells == 0 {
			r := failed(StatusDegraded, "no elements matched", nil)
			r.Details = details
			return r
		}
		return healthy("elements matched", details)
	}
}

// SchemaCheck compiles the schema at path.
func SchemaCheck(path string) Check {
	return func(ctx context.Context) CheckResult {
		if _, err := content.LoadSchema(path); err != nil {
			return failed(StatusDegraded, "schema unusable", err)
		}
		return healthy("schema compiled", map[string]interface{}{"path": path})
	}
}

// DirWritableCheck verifies a file can be created in dir, creating dir if
// needed.
func DirWritableCheck(dir string) Check {
	return func(ctx context.Context) CheckResult {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return failed(StatusDegraded, "directory unavailable", err)
		}
		f, err := os.CreateTemp(dir, ".mledit-health-*")
		if err != nil {
			return failed(StatusDegraded, "directory not writable", err)
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
		return healthy("directory writable", map[string]interface{}{"path": dir})
	}
}

// CommandCheck verifies the first word of command is an executable on PATH.
func CommandCheck(command string) Check {
	return func(ctx context.Context) CheckResult {
		args := strings.Fields(command)
		if len(args) == 0 {
			return failed(StatusDegraded, "no command configured", nil)
		}
		path, err := exec.LookPath(args[0])
		if err != nil {
			return failed(StatusDegraded, "command not found", err)
		}
		return healthy("command found", map[string]interface{}{"path": filepath.Clean(path)})
	}
}
