// Package tts multiplexes synthesis jobs onto a fixed pool of out-of-process
// worker programs. Each worker loads a full voice model, so pools are sized
// to a fraction of the machine rather than per-job, and a second tiny pool
// serves the code voice without reloading its model per segment.
//
// Workers speak a line-delimited JSON protocol on stdin/stdout: the pool
// sends synthesize and shutdown requests, the worker answers ready on boot
// and done or error per job. Anything outside that closed set is rejected at
// the boundary.
package tts
