// Package events defines the run progress events emitted on the event bus.
//
// Available event types:
//   - RunEvent: a perturbation run started, progressed, completed or failed
package events
