// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packgemm

import (
	"runtime"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/hostblas/pkg/core/dtypes"
	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"
	"k8s.io/klog/v2"
)

// MicroKernel computes one register tile of the product from a packed A sliver and a packed B sliver.
//
// Compute adds to acc[i*cols+j] the sum over p < kCount of a[p*rows+i] * b[p*cols+j], for i < rows and
// j < cols. rows <= mr and cols <= nr (see Shape) are the widths of the slivers, smaller than the tile
// for the remainders of a block. It does no scaling and knows nothing about layouts.
type MicroKernel[T dtypes.Number] interface {
	Name() string
	Shape() (mr, nr int)
	Compute(a, b, acc []T, kCount, rows, cols int)
}

// KernelVariant describes a registered micro-kernel implementation.
//
// The register tile shape is not part of the variant: it is given by the Shape of the kernels it builds.
type KernelVariant struct {
	Name string

	// Priority: the available variant with the highest priority is the default.
	Priority int

	// Available reports whether the current CPU benefits from (or supports) the variant.
	Available func() bool
}

const (
	ScalarKernel      = "scalar"
	Unrolled4x4Kernel = "unrolled4x4"
	Unrolled8x4Kernel = "unrolled8x4"
)

// kernelRegistration is one variant registered for one element type.
// newFn is a func() MicroKernel[T] for that type.
type kernelRegistration struct {
	KernelVariant
	newFn any
}

var (
	kernelsMu sync.Mutex
	kernels   []kernelRegistration
)

func alwaysAvailable() bool { return true }

// hasWideRegisters reports whether the CPU has enough vector registers for the 8x4 tile
// to stay in registers.
func hasWideRegisters() bool {
	switch runtime.GOARCH {
	case "amd64":
		return cpu.X86.HasAVX2 && cpu.X86.HasFMA
	case "arm64":
		return cpu.ARM64.HasASIMD
	}
	return false
}

func registerBuiltinKernels[T dtypes.Number]() {
	RegisterKernel(KernelVariant{Name: ScalarKernel, Priority: 0, Available: alwaysAvailable},
		func() MicroKernel[T] { return scalarKernel[T]{mr: 4, nr: 4} })
	RegisterKernel(KernelVariant{Name: Unrolled4x4Kernel, Priority: 10, Available: alwaysAvailable},
		func() MicroKernel[T] { return unrolled4x4Kernel[T]{} })
	RegisterKernel(KernelVariant{Name: Unrolled8x4Kernel, Priority: 20, Available: hasWideRegisters},
		func() MicroKernel[T] { return unrolled8x4Kernel[T]{} })
}

func init() {
	registerBuiltinKernels[float32]()
	registerBuiltinKernels[float64]()
	registerBuiltinKernels[int]()
	registerBuiltinKernels[int8]()
	registerBuiltinKernels[int16]()
	registerBuiltinKernels[int32]()
	registerBuiltinKernels[int64]()
	registerBuiltinKernels[uint]()
	registerBuiltinKernels[uint8]()
	registerBuiltinKernels[uint16]()
	registerBuiltinKernels[uint32]()
	registerBuiltinKernels[uint64]()
}

// RegisterKernel adds a variant for the element type T, built by newFn. A variant that supports several
// types is registered once per type. Registering the same name for the same T replaces the previous entry.
//
// It panics if the variant is malformed or newFn builds a kernel with an invalid shape.
// It should be called before the first GEMM, typically in an init().
func RegisterKernel[T dtypes.Number](v KernelVariant, newFn func() MicroKernel[T]) {
	if v.Name == "" || v.Available == nil || newFn == nil {
		exceptions.Panicf("packgemm.RegisterKernel: invalid variant %+v", v)
	}
	if mr, nr := newFn().Shape(); mr <= 0 || nr <= 0 {
		exceptions.Panicf("packgemm.RegisterKernel(%q): invalid kernel shape %dx%d", v.Name, mr, nr)
	}
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	kernels = slices.DeleteFunc(kernels, func(r kernelRegistration) bool {
		_, sameType := r.newFn.(func() MicroKernel[T])
		return sameType && r.Name == v.Name
	})
	kernels = append(kernels, kernelRegistration{KernelVariant: v, newFn: newFn})
	slices.SortStableFunc(kernels, func(a, b kernelRegistration) int { return b.Priority - a.Priority })
}

// registrationsFor returns the constructors registered for T, in decreasing priority.
func registrationsFor[T dtypes.Number]() (variants []KernelVariant, newFns []func() MicroKernel[T]) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	for _, r := range kernels {
		if newFn, ok := r.newFn.(func() MicroKernel[T]); ok {
			variants = append(variants, r.KernelVariant)
			newFns = append(newFns, newFn)
		}
	}
	return
}

// Kernels returns the variants registered for T, in decreasing priority.
func Kernels[T dtypes.Number]() []KernelVariant {
	variants, _ := registrationsFor[T]()
	return variants
}

// KernelNames returns the names of all registered variants, for any element type, in decreasing priority.
func KernelNames() []string {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	var names []string
	for _, r := range kernels {
		if !slices.Contains(names, r.Name) {
			names = append(names, r.Name)
		}
	}
	return names
}

// DefaultKernel returns the name of the highest-priority available variant registered for T.
//
// Element types with no registered variant (named types such as `type F float64`) use the generic
// scalar loop, and DefaultKernel returns ScalarKernel for them.
func DefaultKernel[T dtypes.Number]() string {
	for _, v := range Kernels[T]() {
		if v.Available() {
			return v.Name
		}
	}
	return ScalarKernel
}

// NewKernel instantiates the variant with the given name for T, or the default one if name is empty.
func NewKernel[T dtypes.Number](name string) (MicroKernel[T], error) {
	variants, newFns := registrationsFor[T]()
	if name == "" {
		for i, v := range variants {
			if v.Available() {
				return newFns[i](), nil
			}
		}
		klog.V(2).Infof("packgemm: no micro-kernel registered for %T, using the generic scalar one", *new(T))
		return scalarKernel[T]{mr: 4, nr: 4}, nil
	}
	for i, v := range variants {
		if v.Name == name {
			return newFns[i](), nil
		}
	}
	if len(variants) == 0 && name == ScalarKernel {
		return scalarKernel[T]{mr: 4, nr: 4}, nil
	}
	return nil, errors.Errorf("unknown micro-kernel %q for %T, registered kernels: %v", name, *new(T), kernelNames(variants))
}

func kernelNames(variants []KernelVariant) []string {
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		names = append(names, v.Name)
	}
	return names
}
