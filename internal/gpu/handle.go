// Package gpu implements the buffer/image allocator, the per-frame
// upload arena, and the timeline coordinator: the typed handle-based
// GPU resource layer every other subsystem builds on.
package gpu

import "github.com/cogentcore/webgpu/wgpu"

// BufferHandle is an opaque reference resolved only inside the Allocator.
type BufferHandle uint32

// ImageHandle is an opaque reference resolved only inside the Allocator.
type ImageHandle uint32

// InvalidBuffer and InvalidImage are the sentinel invalid handles callers
// must branch on instead of dereferencing.
const (
	InvalidBuffer BufferHandle = 0
	InvalidImage  ImageHandle  = 0
)

func (h BufferHandle) Valid() bool { return h != InvalidBuffer }
func (h ImageHandle) Valid() bool  { return h != InvalidImage }

type bufferRecord struct {
	label  string
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

type imageRecord struct {
	label      string
	texture    *wgpu.Texture
	view       *wgpu.TextureView
	desc       ImageDesc
	aliasable  bool
	aliasKey   ImageAliasKey
	mipLevels  uint32
}

// ImageAliasKey identifies images eligible for transient alias reuse,
// keyed on (format, extent, usage, mipLevels).
type ImageAliasKey struct {
	Format    wgpu.TextureFormat
	Width     uint32
	Height    uint32
	Depth     uint32
	Usage     wgpu.TextureUsage
	MipLevels uint32
}

// BufferDesc carries everything CreateBuffer needs up front.
type BufferDesc struct {
	Label        string
	Size         uint64
	Usage        wgpu.BufferUsage
	HostVisible  bool
	InitialData  []byte
}

// ImageDesc carries everything createImage needs up front; zero values
// for MipLevels/Depth/SampleCount mean 1.
type ImageDesc struct {
	Label       string
	Format      wgpu.TextureFormat
	Width       uint32
	Height      uint32
	Depth       uint32
	MipLevels   uint32
	SampleCount uint32
	Usage       wgpu.TextureUsage
	Dimension   wgpu.TextureDimension
	Aliasable   bool
}

func (d ImageDesc) aliasKey() ImageAliasKey {
	return ImageAliasKey{
		Format:    d.Format,
		Width:     d.Width,
		Height:    d.Height,
		Depth:     d.Depth,
		Usage:     d.Usage,
		MipLevels: d.MipLevels,
	}
}
