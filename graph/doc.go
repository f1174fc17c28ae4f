// Package graph implements a Bulk-Synchronous-Parallel super-step scheduler
// for stateful, multi-actor workflows expressed as directed graphs.
//
// A workflow is built with GraphBuilder, compiled into an immutable Graph,
// and run with Graph.Invoke, Graph.Stream, or Graph.Resume. Execution
// carries a single State value through the graph, merging node deltas
// through per-key reducers, until a frame reaches FINISH.
//
// Subpackages: store holds Store backends (memory, file, sqlite, mysql,
// redis); emit holds Observer implementations (log, null, buffered, otel,
// prometheus, multi); model and tool describe the external chat-model and
// tool collaborators nodes built with ChatNode/ToolNode delegate to.
package graph
