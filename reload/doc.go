// Package reload replaces a running module with a staged build.
//
// A build tool stages the replacement next to the active library as
// "<library>.new". On a reload request the Coordinator:
//
//  1. shuts the active module down, so no platform holds the file open
//  2. moves the artifact over the library, atomically where rename works
//  3. loads and initializes the module again under the same name
//
// Without an artifact step 2 is skipped and the module is restarted from
// the unchanged file, which re-runs on_load.
//
// If step 3 fails the host has no active module. Recover retries steps 2
// and 3 for a logical name; there is no rollback to the previous build.
package reload
