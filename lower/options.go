package lower

import (
	"go.uber.org/zap"

	"github.com/wippyai/listgen/rtabi"
)

const (
	pageSize = 65536

	// ReservedBytes at the bottom of linear memory are never handed out,
	// so address 0 stays an invalid pointer.
	ReservedBytes = 1024
)

// Options configures a lowering session.
type Options struct {
	// Logger overrides the package logger.
	Logger *zap.Logger
	// Refcounter emits reference count operations. Defaults to
	// HeaderRefcounter.
	Refcounter Refcounter

	RuntimeModule   string
	AllocatorModule string

	// MemoryPages is the minimum size of the exported memory.
	MemoryPages uint32
	// StackTop is the initial shadow stack pointer. The stack grows down
	// towards ReservedBytes and the heap starts at StackTop.
	StackTop uint32

	// ExportFunctionPointers exports every function table slot as
	// "__fnptr_<slot>" so a host runtime can invoke callbacks.
	ExportFunctionPointers bool
}

// DefaultOptions returns the default session configuration.
func DefaultOptions() Options {
	return Options{
		RuntimeModule:          rtabi.RuntimeModule,
		AllocatorModule:        rtabi.AllocatorModule,
		MemoryPages:            2,
		StackTop:               pageSize,
		ExportFunctionPointers: true,
	}
}

func (o *Options) normalize() {
	d := DefaultOptions()
	if o.RuntimeModule == "" {
		o.RuntimeModule = d.RuntimeModule
	}
	if o.AllocatorModule == "" {
		o.AllocatorModule = d.AllocatorModule
	}
	if o.MemoryPages == 0 {
		o.MemoryPages = d.MemoryPages
	}
	if o.StackTop == 0 {
		o.StackTop = d.StackTop
	}
	if o.Refcounter == nil {
		o.Refcounter = HeaderRefcounter{}
	}
}
