// Package hook is the page side of the devtools bridge.
//
// A [Hook] is published once per page. Editors register with
// [Hook.Inject], which posts an init envelope with a snapshot of the view
// on the window bus. The returned [Session] posts later states and is
// released with [Session.Disconnect].
//
// The hook also listens for extension-showing envelopes to track whether
// the devtools panel is visible. When the panel becomes visible, init is
// posted again for every live session so a panel opened after the page
// loaded starts from the current state.
package hook
