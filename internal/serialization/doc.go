// Package serialization saves and loads networks.
//
// Two encodings carry the same Snapshot. JSON is human readable; float32
// values are written in their shortest round-trip form, so parameters come
// back bit-identical. The binary .cnvn format is laid out as:
//
//	Format Structure:
//	  [0x00-0x03: Magic "CNVN"]
//	  [0x04-0x07: Version (uint32 LE)]
//	  [0x08-0x0B: Flags (uint32 LE)]
//	  [0x0C-0x0F: Reserved]
//	  [0x10-0x17: Header size (uint64 LE)]
//	  [0x18-0x1F: Data size (uint64 LE)]
//	  [0x20-0x3F: SHA-256 of the data section]
//	  [Header: JSON snapshot without parameters, plus the tensor table]
//	  [Tensor data: little-endian float32, 64-byte aligned]
//
// Store implements network.Checkpointer on top of both, and Load reads
// either encoding back into a network.
//
// Example usage:
//
//	store := &serialization.Store{Dir: "models"}
//	n.SetCheckpointer(store)
//	...
//	n, err := serialization.Load("models/mnist.cnvn")
package serialization
