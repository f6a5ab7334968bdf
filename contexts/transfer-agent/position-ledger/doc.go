// Package positionledger implements the restricted-security position ledger
// inside Quill.
//
// Layering:
// - domain: holder books, exemption batches, transfer requests, errors
// - application: registrar commands, holder queries, outbox relay workers
// - ports: stable boundaries for persistence, time, ids, and events
// - adapters: concrete HTTP, memory, and postgres implementations
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - Keep this module self-contained under the transfer-agent context.
// - Do not import other context adapters into domain/application.
// - All state changes go through a single Repository.Apply per command.
package positionledger
