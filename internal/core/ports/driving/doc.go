// Package driving defines the interfaces front-ends use to drive the
// core: the worker/job contract and its lifecycle states. The CLI and
// the interactive shell both orchestrate workers through this package.
package driving
