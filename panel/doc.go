// Package panel is the devtools panel side of the bridge.
//
// [Panel] consumes init and updateState envelopes arriving at the
// extension and keeps a rebuilt [View] of the inspected editor. [Notifier]
// tells content relays whether the panel is visible.
package panel
