// Package backend is the ContentAnonymity API: the content catalog, forum,
// learning paths and member accounts behind contentanonymity.com.
//
// Binaries live under cmd/:
//
//   - cmd/server: the HTTP API
//   - cmd/migrate: schema migrations (gorm auto-migrate plus goose SQL files)
//   - cmd/seed: development and end-to-end fixture data
//   - cmd/contentctl: admin CLI for imports, reindexing and roles
//
// The packages under internal/ are organised by concern:
//
//   - internal/handlers: HTTP handlers and route table
//   - internal/models: GORM models
//   - internal/repository: queries shared by handlers and jobs
//   - internal/auth: password, TOTP, Google sign-in and JWT issuance
//   - internal/gamification: points ledger, badges and leaderboard
//   - internal/search: Elasticsearch index with a database fallback
//   - internal/importer: CSV and JSON bulk import
//   - internal/stream: Stream activity feed publishing
//   - internal/websocket: live notifications
//   - internal/storage: S3 image uploads
//   - internal/email: SES mail
//   - internal/cli: contentctl internals
package backend
