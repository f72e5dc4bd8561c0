// Package graph models workflow graphs in their two submitted shapes.
//
// An interactive graph is the editor document: positioned nodes carrying
// ordered widget values and input slots, plus a separate link table. A linear
// graph is the flat node-id keyed map the job engine executes. Callers
// classify raw JSON once with Classify or Decode and work against the typed
// structures afterwards.
package graph
