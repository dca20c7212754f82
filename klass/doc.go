// Package klass implements a small reflective object model. A Class is a
// named aggregate of typed scalar members and invocable functions, with an
// optional constructor and destructor tied to its lifecycle:
//   - Members hold one of four scalar kinds (f32, f64, i32, u32).
//   - Functions are unary (self) or binary (self, other -> new instance).
//   - Constructors run once inside Runtime.Create, destructors once inside
//     Class.Destroy.
//   - Member and function tables are append-only; indices never move.
//
// Instances are created from a Runtime, which owns the configuration, the
// logger and the bookkeeping for live instances. Neither a Runtime nor its
// instances are safe for concurrent use.
package klass
