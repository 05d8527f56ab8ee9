// Package responder coalesces bursts of parent messages into one pending
// context per chat and guarantees that exactly one committed automated reply
// is produced per settled burst.
//
// Files in this package:
//   - types.go    — collaborator interfaces, DTOs, sentinel errors, constants
//   - pending.go  — sharded pending-context store
//   - service.go  — dispatch gate and the single-flight generation task
//   - reply.go    — score extraction and paragraph splitting
//   - store.go    — GORM-backed persistence boundary
//   - recorder.go — task registry adapter
//   - handler.go  — stats and task observability endpoints
package responder
