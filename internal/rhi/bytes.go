package rhi

import "github.com/cogentcore/webgpu/wgpu"

// ToBytes reinterprets a slice of plain structs or scalars as bytes for
// buffer upload.
func ToBytes[T any](data []T) []byte {
	return wgpu.ToBytes(data)
}

// FromBytes reinterprets a byte slice as typed values after readback.
func FromBytes[T any](data []byte) []T {
	return wgpu.FromBytes[T](data)
}
