// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): ingestion, retrieval, chat
// and settings.
//
// Services are pure Go with no CGO and depend only on ports, so the
// same code runs against SQLite or the in-memory stores.
package services
