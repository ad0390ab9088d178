// Package registry holds the catalog of launchable applications.
//
// The catalog is built once at startup from the supervisor's unit files
// matching a pattern such as agl-app*@*.service. Each templated instance
// becomes one application: agl-app@radio.service has id "radio", a display
// name taken from the unit's Description, and an optional icon.
//
// Components:
//   - Registry: Read-only lookup and ordered listing after Initialize
//   - seeder: Unit enumeration, name parsing and metadata resolution
//
// Example Usage:
//
//	reg := registry.NewRegistry(logger)
//	_ = reg.Initialize(ctx, supervisor, icons, "agl-app*@*.service")
//	rec, ok := reg.Lookup("radio")
package registry
