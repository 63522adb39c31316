// Package rerr defines the renderer's error kinds. Every kind maps to
// one recovery policy; nothing in this module panics past init.
package rerr

import "fmt"

// Kind classifies a renderer error by its recovery policy.
type Kind int

const (
	// DeviceLost is fatal: the GPU reported a device-lost state. No recovery.
	DeviceLost Kind = iota
	// SwapchainOutOfDate triggers a swapchain recreation on the next iteration.
	SwapchainOutOfDate
	// Suboptimal triggers a swapchain recreation on the next iteration.
	Suboptimal
	// AllocationFailed covers buffer/image/upload-slice creation failures.
	AllocationFailed
	// ShaderLoadFailed is an init-time failure; Init must return false.
	ShaderLoadFailed
	// PipelineCreateFailed is an init-time failure; Init must return false.
	PipelineCreateFailed
	// MissingFeature means an optional GPU feature is unavailable; the
	// dependent subsystem degrades instead of failing.
	MissingFeature
	// TimelineStall means a frame slot has not completed past the lag
	// threshold; logged with a cooldown and retried next iteration.
	TimelineStall
)

func (k Kind) String() string {
	switch k {
	case DeviceLost:
		return "DeviceLost"
	case SwapchainOutOfDate:
		return "SwapchainOutOfDate"
	case Suboptimal:
		return "Suboptimal"
	case AllocationFailed:
		return "AllocationFailed"
	case ShaderLoadFailed:
		return "ShaderLoadFailed"
	case PipelineCreateFailed:
		return "PipelineCreateFailed"
	case MissingFeature:
		return "MissingFeature"
	case TimelineStall:
		return "TimelineStall"
	default:
		return "Unknown"
	}
}

// Fatal reports whether Kind leaves the orchestrator unable to attempt
// another frame.
func (k Kind) Fatal() bool {
	return k == DeviceLost || k == ShaderLoadFailed || k == PipelineCreateFailed
}

// RenderError wraps a Kind with the subsystem-provided detail.
type RenderError struct {
	Kind    Kind
	Subsys  string
	Message string
	Err     error
}

func New(kind Kind, subsys, message string) *RenderError {
	return &RenderError{Kind: kind, Subsys: subsys, Message: message}
}

func Wrap(kind Kind, subsys, message string, err error) *RenderError {
	return &RenderError{Kind: kind, Subsys: subsys, Message: message, Err: err}
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Subsys, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Subsys, e.Kind, e.Message)
}

func (e *RenderError) Unwrap() error { return e.Err }
