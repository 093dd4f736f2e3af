// Package services holds the engine implementations: the worker and
// its unbounded postback queue, the diff, merge, search and export
// jobs, progress tracking, and the buffering status decorator. All
// archive access goes through the driven ports; all delivery to
// front-ends goes through postbacks.
package services
