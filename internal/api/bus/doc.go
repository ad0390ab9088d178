// Package bus exports the launcher on the D-Bus session bus as
// org.automotivelinux.AppLaunch.
//
// Methods:
//   - start(s app_id)
//   - listApplications(b graphical) -> av of (sss) id, name, icon path
//
// Signals started(s) and terminated(s) mirror lifecycle events.
package bus
