// Package systemd adapts the systemd manager D-Bus API to the launcher.
//
// It enumerates unit files by pattern, reads unit descriptions, queues
// start jobs in "replace" mode and forwards ActiveState changes of
// watched units. Calls go through a circuit breaker; while it is open the
// supervisor reports itself unavailable.
package systemd
