// Package bridge is the Go facade over the Tapjoy SDK's native module. It is
// structured into small files by concern:
//
//   - gateway.go: named calls to the native module, linkage checks, call
//     metrics; Invoke awaits and decodes, Fire only surfaces linkage errors.
//   - router.go: one native listener fanned out to subscriptions, matched
//     by correlation id, then placement name, then channel.
//   - operation.go: an awaitable, cancellable exchange that owns its
//     subscription and ends on its terminal event or the operation timeout.
//   - client.go: session facade (connect, currency, purchases, debug, Close).
//   - placement.go: placement objects, their notifications and state.
//   - user.go, privacy.go: user attributes and consent flags.
//   - enums.go: EntryPoint, Segment and Status enumerations.
//   - events.go, eventpub_*.go: EventPublisher sinks (memory, Kafka).
//
// Construct a Client with New and release it with Close; nothing is global.
package bridge
