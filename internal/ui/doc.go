// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for the studio client:
//  1. [ArtifactsView] : Browse generated artifacts; the current artifact is marked
//  2. [GenerateView] : Enter a prompt and submit a generation request
//  3. [ProgressView] : Monitor progress of a blocking operation (legacy generation, installs)
//  4. [JobsView] : Watch tracked background jobs advance through their lifecycle
//  5. [FeaturesView] : Inspect feature readiness and trigger model installs
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the studio Engine; job and feature
// changes arrive on the tracker channels, re-wrapped as tea messages so the
// single-threaded update loop stays the only writer of view state.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, tab, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
