// File: client/rollout.go
// Package client
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"

	"github.com/momentics/hioload-maze/api"
)

// Rollout sends msg to every target in order and returns one Result per
// target. An offline target is recorded and skipped; only ctx stops the
// rollout early, and the remaining targets are then reported with ctx's
// error.
func (c *RetryClient) Rollout(ctx context.Context, targets []string, msg api.ControlMessage, match Matcher) []Result {
	results := make([]Result, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Target: t, Err: err})
			continue
		}
		res, err := c.Send(ctx, t, msg, match)
		if err != nil {
			c.log.Warn("target failed", "target", t, "error", err)
		} else {
			c.log.Info("target updated", "target", t, "reply", string(res.Reply))
		}
		results = append(results, res)
	}
	return results
}

// Failed returns the results that did not succeed.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
