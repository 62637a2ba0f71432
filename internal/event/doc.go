// Package event defines the event bus and event types that decouple the
// LOGIA hub's components. The registry, dispatcher, and workflows publish
// lifecycle events here; the audit trail and any external observers
// subscribe without the publishers knowing about them.
//
// The bus is synchronous: Publish calls every matching handler before
// returning. Handlers must be fast and must not block. A panicking handler
// is recovered and logged so it cannot prevent delivery to other handlers.
//
// Event type identifiers follow the "category.action" convention, e.g.
// "case.opened", "agent.registered", "dispatch.response".
package event
