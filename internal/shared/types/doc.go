// Package types provides shared data structures for the launcher daemon.
//
// Core Types:
//   - AppRecord: Catalog entry for one launchable application
//   - AppInfo: External projection of an AppRecord (id, name, icon)
//   - Status: Lifecycle state of an application
//   - Event: Lifecycle transition published to subscribers
//   - UnitFile: Unit file entry reported by the supervisor
//
// Errors:
//   - ErrNotFound, ErrUnavailable, ErrStartFailed, ErrInconsistent
//
// Example Usage:
//
//	if errors.Is(err, types.ErrNotFound) {
//	    // unknown application id
//	}
package types
