// Package cli provides the interactive medadmin command-line client.
//
// It wires configuration, local storage, the request gateway and a REPL for
// issuing requests against the clinic backend. Typical flow: prompt for
// credentials, start the background connectivity watcher, then run
// commands such as "get /patients" or "cd /org/acme/patients".
//
// While offline, reads are served from the local cache and writes are
// queued; "sync" sends the queued writes once the backend is back.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
