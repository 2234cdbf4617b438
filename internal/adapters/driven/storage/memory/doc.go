// Package memory provides in-memory implementations of the driven store ports.
// They back tests and the --ephemeral mode; nothing survives the process.
package memory
