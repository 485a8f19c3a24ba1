// Package preflight checks that bindery can do its job before a session
// starts: the output directory is writable and the conversion service
// answers. The CLI "check" command prints the results, and "convert" refuses
// to start when one fails.
package preflight
