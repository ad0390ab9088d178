// Package lifecycle tracks the run state of each registered application.
//
// Every application moves Inactive -> Starting -> Running -> Inactive.
// Start requests and supervisor notifications are the only inputs, and
// one mutex serializes all transitions so observers see events in the
// order the transitions happened.
package lifecycle
