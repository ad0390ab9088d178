// Package broadcast fans lifecycle events out to streaming subscribers.
//
// Each subscriber owns a bounded outbox drained by its own Subscribe
// call, so Publish never waits on a client. A subscriber whose outbox
// fills is evicted without affecting the others.
//
//	b := broadcast.NewBroadcaster(logger)
//	tracker.AddObserver(b)
//	go func() { err := b.Subscribe(stream) }()
//	...
//	b.Shutdown()
package broadcast
