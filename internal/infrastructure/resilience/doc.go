/*
Package resilience provides a circuit breaker for calls into the unit
supervisor.

The breaker has three states:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           v
	                                         Open

While open, calls fail fast with ErrCircuitOpen; callers map that to an
unavailable condition instead of waiting on a dead bus.

	breaker := resilience.New("systemd", resilience.Settings{
		Timeout:       10 * time.Second,
		ReadyToTrip:   func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
		OnStateChange: resilience.LogStateChange(logger),
	})

	desc, err := resilience.Call(breaker, func() (string, error) {
		return conn.Describe(ctx, unit)
	})
*/
package resilience
