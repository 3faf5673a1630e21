package config

import "errors"

// ErrUnknownOffice indicates a document references an office that was not
// supplied to Build.
var ErrUnknownOffice = errors.New("config: unknown office")

// ErrUnknownDocument indicates a document declares a dependency on a
// document that was not supplied to Build.
var ErrUnknownDocument = errors.New("config: unknown document")

// ErrCyclicDependency indicates the document dependency graph contains a
// cycle, which would otherwise manifest as unbounded orchestrator recursion.
var ErrCyclicDependency = errors.New("config: cyclic document dependency")
