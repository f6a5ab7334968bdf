// Package authorizationgateway implements the N-of-M authorization gateway
// inside Quill.
//
// Layering:
// - domain: typed commands, operations, the signer roster, errors
// - application: propose/ratify/revoke/execute, self-governance, relay workers
// - ports: stable boundaries for persistence, time, ids, events, and dispatch
// - adapters: concrete HTTP, memory, and postgres implementations
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - Keep this module self-contained under the transfer-agent context.
// - Do not import other context adapters into domain/application.
// - An operation's executed flag is committed before its command dispatches.
package authorizationgateway
