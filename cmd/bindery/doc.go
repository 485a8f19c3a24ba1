// Package main hosts the bindery CLI.
//
// "convert" queues the files given on the command line, converts them one at
// a time and optionally downloads the results or requests a single bundle.
// "shell" keeps a session open and accepts commands on stdin, so files can be
// added while earlier ones convert and the queue can be paused and resumed.
// "check" and "config" help set the client up.
package main
