// Package resilience implements the circuit breaker pattern. Each land's
// TransportAdapter keeps one CircuitBreaker guarding its Connection.send
// calls, so a single wedged socket opens the breaker and fails fast instead
// of stalling the rest of a broadcast fan-out.
//
// # Circuit Breaker Pattern
//
// A circuit breaker operates in three states:
//
//   - Closed: Normal operation, all requests pass through
//   - Open: Service failing, requests fail immediately (fast-fail)
//   - HalfOpen: Testing recovery with limited requests
//
// State transitions:
//
//	Closed → Open: After MaxFailures consecutive failures
//	Open → HalfOpen: After Timeout period expires
//	HalfOpen → Closed: After successful test requests
//	HalfOpen → Open: If test requests fail
//
// # Creating Circuit Breakers
//
// Create a circuit breaker with a name and sensible defaults, or a custom
// config:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("transport:lobby-1"))
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Name:        "transport:lobby-1",
//	    MaxFailures: 5,
//	    Timeout:     30 * time.Second,
//	    MaxRequests: 3,
//	})
//
// # Executing Protected Operations
//
// Wrap operations with circuit breaker protection:
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return conn.Send(ctx, data)
//	})
//	if errors.Is(err, resilience.ErrCircuitBreakerOpen) {
//	    // Connection is unhealthy, skip this send.
//	}
//
// # Managing Multiple Breakers
//
// CircuitBreakerManager keeps one breaker per key, for callers juggling many
// independent dependencies (one per land instance, for example):
//
//	manager := resilience.NewCircuitBreakerManager()
//	cb := manager.GetOrCreate("lobby-1", &config) // nil config uses defaults
//	stats := manager.GetAllStats()
//
// # Monitoring
//
// Query circuit breaker state and statistics:
//
//	state := cb.GetState()       // StateClosed, StateOpen, or StateHalfOpen
//	stats := cb.GetStats()       // Failure counts, request counts, timestamps
//
// # Thread Safety
//
// All circuit breaker operations are thread-safe via internal mutex protection.
// Multiple goroutines can safely execute through the same breaker.
package resilience
