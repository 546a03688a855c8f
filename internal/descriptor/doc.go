// Package descriptor defines the declarative request model accepted by the
// graphledger engine.
//
// A request names one operation and carries a payload describing the nodes
// and relationships it touches. Each entity occupies a named slot ("node",
// "from", "rel", "to", ...) and the slot decides whether the entity is a node
// or a relationship. Descriptors are pure data: they are decoded from JSON,
// consumed once by the cypher compiler and then discarded.
//
// Key ordering matters. Entity properties and search fields are decoded as
// ordered lists so that compiled statements, parameter numbering and change
// log numbering follow the order the caller wrote them in.
package descriptor
