// Package services holds the business rules of the platform core:
//
//   - ProfileService: canonical user profiles and name search
//   - RelationshipService: the mutual follow graph
//   - ChatService: deterministic two-party chat sessions
//   - NotificationService: per-user inbox and read state
//   - ClassroomService: join-code classrooms, rosters and classroom content
//   - AuthService: registration, login and token issuance
//   - FeedService: the public post feed
//
// Services are written against the docstore.Gateway interface only; the
// concrete store (Postgres or in-memory) is injected at construction.
package services
