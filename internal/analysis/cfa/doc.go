// # Description
//
// Package cfa models programs as control-flow automata (CFA).
//
// ## Control-Flow Automaton
//
// A CFA is a directed graph whose nodes are program locations and whose edges
// carry the operation executed when control moves from one location to the
// next. In a CFA:
//
//   - Each node is a single location inside one function.
//   - Each edge carries exactly one operation: an assumption, an assignment,
//     a declaration, a return statement, a call, a return from a call, a
//     chain of such operations, or nothing at all.
//   - Branches are pairs of assume edges leaving the same location, one for
//     each truth value of the condition.
//   - Calls to functions with a body are split into an edge entering the
//     callee and an edge leaving its exit towards the call site's successor.
//
// ## Package Functionality
//
//  1. Construction: build automata in code with `NewBuilder`, or read them from
//     YAML with `Load` and `LoadFile`.
//  2. Validation: `Validate` rejects dangling edges and mismatched call/return
//     edges.
//  3. Scoping: `Build` fixes the locals visible at every location, queried with
//     `Node.Declares`.
//  4. Rendering: `PrintDot` writes a GraphViz graph.
package cfa
