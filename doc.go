// Package backend is the campuslink API server: accounts, campus posts
// and real-time chat for a single college.
//
// The binaries live under cmd/:
//
//   - cmd/server: the HTTP and WebSocket API
//   - cmd/campusctl: schema migration, development seeding and token minting
//
// The packages under internal/ carry the implementation:
//
//   - internal/chat: conversations, membership and ordered message delivery
//   - internal/websocket: the realtime hub and socket protocol
//   - internal/handlers: REST endpoints
//   - internal/auth: registration, login and bearer tokens
//   - internal/repository: users, posts, reactions and comments
//   - internal/storage: S3 media uploads
//   - internal/moderation and internal/recommendations: upstream ML services
package backend
