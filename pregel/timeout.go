package pregel

import (
	"context"
	"fmt"
	"time"
)

// getVertexTimeout resolves the timeout for a vertex's Compute call by
// precedence: per-vertex VertexPolicy.Timeout, then PregelConfig-wide
// DefaultVertexTimeout, then 0 (unlimited).
func getVertexTimeout(policy *VertexPolicy, defaultTimeout time.Duration) time.Duration {
	if policy != nil && policy.Timeout > 0 {
		return policy.Timeout
	}
	if defaultTimeout > 0 {
		return defaultTimeout
	}
	return 0
}

// computeWithTimeout wraps a single Compute invocation with the resolved
// timeout. If f returns nil after the deadline has passed, the returned
// error wraps context.DeadlineExceeded so the scheduler's retry logic sees a
// normal, classifiable error; an error f returns itself is passed through.
func computeWithTimeout[U any](ctx context.Context, vertexID VertexId, timeout time.Duration, f func(context.Context) (ComputeResult[U], error)) (ComputeResult[U], error) {
	if timeout <= 0 {
		return f(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := f(timeoutCtx)
	if err == nil && timeoutCtx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("vertex %q exceeded timeout of %v: %w", vertexID, timeout, context.DeadlineExceeded)
	}
	return result, err
}
