// Package integration combines circuit breaker and retry patterns for
// comprehensive fault tolerance.
//
// This package provides ResilientExecutor which layers retry logic on top of
// circuit breaker protection, giving operations the benefits of both mechanisms:
// automatic retries for transient failures and fast-fail for persistent outages.
//
// # Execution Flow
//
// The retrier is the outer layer and every attempt passes through the
// circuit breaker:
//
//  1. Retry starts an attempt, returning ctx.Err() if the context is done
//  2. Circuit breaker checks if the attempt should proceed; if the circuit
//     is open, the attempt fails with ErrCircuitBreakerOpen without running
//     the operation
//  3. If circuit allows, the operation runs and the breaker records its
//     success/failure for state management
//  4. A failed attempt (including a breaker-open one) is retried with
//     exponential backoff until MaxAttempts is reached
//
// # Creating Executors
//
// Create a custom executor with specific configuration:
//
//	cbConfig := resilience.CircuitBreakerConfig{
//	    MaxFailures: 5,
//	    Timeout:     30 * time.Second,
//	}
//	retryConfig := retry.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 100 * time.Millisecond,
//	}
//	executor := integration.CreateCustomExecutor("my-service", cbConfig, retryConfig)
//
// # Executing Operations
//
// Wrap operations with combined protection:
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalAPI(ctx)
//	})
//
// # Pre-configured Executors
//
// Global executors for common operation types:
//
//	// File system operations
//	err := integration.ExecuteFileSystemOperation(ctx, operation)
//
//	// Network/WebSocket operations
//	err := integration.ExecuteNetworkOperation(ctx, operation)
//
//	// Configuration loading
//	err := integration.ExecuteConfigOperation(ctx, operation)
//
// # Ad-hoc Execution
//
// For one-off operations with custom options:
//
//	err := integration.ExecuteResilient(ctx, operation,
//	    integration.ConfigureRetry(retryConfig),
//	    integration.ConfigureCircuitBreaker(cbConfig),
//	)
//
// # Disabling Mechanisms
//
// Run with only one protection mechanism:
//
//	// Retry only, no circuit breaker
//	err := integration.WithCircuitBreakerDisabled(retryConfig).Execute(ctx, operation)
//
//	// Circuit breaker only, no retry
//	err := integration.WithRetryDisabled(cbConfig).Execute(ctx, operation)
//
// # Statistics
//
// Query the circuit breaker's statistics:
//
//	stats := executor.GetStats()
//	// Circuit breaker fields, keys prefixed "circuit_breaker_"; no retry metrics
//
// # Testing
//
// Each predefined executor owns its circuit breaker. Tests that need a fresh
// breaker replace the package-level executor:
//
//	integration.ConfigLoaderExecutor = integration.NewResilientExecutor(
//	    resilience.ConfigLoaderConfig, retry.DefaultRetryConfig())
package integration
