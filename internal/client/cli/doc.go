// Package cli provides the interactive GophChat command-line client.
//
// It wires configuration, the REST API client and an interactive REPL. A
// background watcher probes the server and flips the prompt between online
// and offline.
//
// Key features:
//   - Register / Login / Logout
//   - List, create, rename and open conversations
//   - Show the history of the open conversation
//   - Say something and print the reply
//   - Export the transcript through a presigned link
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
