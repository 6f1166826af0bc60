// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package linalg is the host (CPU) dense linear algebra back-end: it validates the operands of
// each operation, picks the code path for their layouts, and runs it with the configured parallelism.
//
// The matrix-matrix product is delegated to packgemm. The other operations (element-wise updates,
// diagonal and row/column extraction, transposition, type conversion, matrix-vector products and the
// Householder/Givens helpers used by eigen/SVD solvers) are implemented here.
//
// Operations are generic functions taking the *Backend as first argument, e.g.:
//
//	b := must.M1(linalg.New())
//	err := linalg.Prod(b, 1.0, a, false, x, false, 0.0, c)
package linalg

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/hostblas/internal/workerspool"
	"github.com/gomlx/hostblas/pkg/packgemm"
	"github.com/gomlx/hostblas/pkg/scratch"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ConfigEnvVar is the environment variable with the default configuration used by New.
const ConfigEnvVar = "HOSTBLAS_CONFIG"

// DefaultConfig is used by New if ConfigEnvVar is not set.
var DefaultConfig string

// DefaultMinParallelSize is the number of elements above which the element-wise
// operations are split among workers.
const DefaultMinParallelSize = 5000

// Backend holds the configuration shared by all operations. It's safe for concurrent use.
type Backend struct {
	config          string
	pool            *workerspool.Pool
	scratch         *scratch.Pool
	caches          packgemm.CacheSizes
	kernel          string
	minParallelSize int
}

// New returns a Backend configured from $HOSTBLAS_CONFIG if set, DefaultConfig otherwise.
func New() (*Backend, error) {
	if config, found := os.LookupEnv(ConfigEnvVar); found {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// NewWithConfig creates a Backend from a comma-separated list of options:
//
//   - "parallelism=N": number of workers per operation. 0 disables parallelism, -1 is runtime.NumCPU().
//     The default is runtime.NumCPU().
//   - "ops_sequential": same as "parallelism=0".
//   - "kernel=NAME": GEMM micro-kernel, one of packgemm.KernelNames(). Default is the best one
//     for the CPU and element type.
//   - "l1=SIZE", "l2=SIZE", "l3=SIZE": cache sizes (e.g. "48KiB", "2MB") used to size the GEMM blocks.
//   - "scratch_limit=SIZE": maximum bytes of scratch buffers in use at any time. Default is unlimited.
//   - "min_parallel_size=N": element-wise operations on fewer elements run sequentially. Default is 5000.
//
// Example: "parallelism=4,kernel=unrolled4x4,scratch_limit=256MiB".
func NewWithConfig(config string) (*Backend, error) {
	b := &Backend{
		config:          config,
		caches:          packgemm.DefaultCacheSizes,
		minParallelSize: DefaultMinParallelSize,
	}
	parallelism := runtime.NumCPU()
	var scratchLimit uint64
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if !hasValue && key != "ops_sequential" {
			return nil, errors.Errorf("linalg: configuration option %q requires a value (\"%s=...\")", key, key)
		}
		var err error
		switch key {
		case "ops_sequential":
			parallelism = 0
		case "parallelism":
			parallelism, err = strconv.Atoi(value)
		case "kernel":
			if !slices.Contains(packgemm.KernelNames(), value) {
				err = errors.Errorf("unknown micro-kernel %q, registered kernels: %v", value, packgemm.KernelNames())
			} else {
				b.kernel = value
			}
		case "l1":
			b.caches.L1, err = parseBytes(value)
		case "l2":
			b.caches.L2, err = parseBytes(value)
		case "l3":
			b.caches.L3, err = parseBytes(value)
		case "scratch_limit":
			scratchLimit, err = humanize.ParseBytes(value)
		case "min_parallel_size":
			b.minParallelSize, err = strconv.Atoi(value)
		default:
			return nil, errors.Errorf("linalg: unknown configuration option %q in %q", key, config)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "linalg: invalid value for configuration option %q", key)
		}
	}
	if b.caches.L1 <= 0 || b.caches.L2 <= 0 || b.caches.L3 <= 0 {
		return nil, errors.Errorf("linalg: cache sizes must be positive, got %s", b.caches)
	}
	b.pool = workerspool.NewWithParallelism(parallelism)
	b.scratch = scratch.New(int64(scratchLimit))
	klog.V(1).Infof("linalg: created backend %s", b.Description())
	return b, nil
}

func parseBytes(value string) (int, error) {
	n, err := humanize.ParseBytes(value)
	return int(n), err
}

// String returns the configuration used to create the backend.
func (b *Backend) String() string {
	return fmt.Sprintf("linalg(%q)", b.config)
}

// Description of the effective configuration, for logging.
func (b *Backend) Description() string {
	kernel := b.kernel
	if kernel == "" {
		kernel = "auto(float32:" + packgemm.DefaultKernel[float32]() + ")"
	}
	limit := "unlimited"
	if b.scratch.Limit() > 0 {
		limit = humanize.IBytes(uint64(b.scratch.Limit()))
	}
	return fmt.Sprintf("parallelism=%d, kernel=%s, caches={%s}, scratch_limit=%s, min_parallel_size=%d",
		b.pool.MaxParallelism(), kernel, b.caches, limit, b.minParallelSize)
}

// Pool returns the workers pool used by the backend.
func (b *Backend) Pool() *workerspool.Pool {
	return b.pool
}

// Scratch returns the scratch buffers pool used by the backend.
func (b *Backend) Scratch() *scratch.Pool {
	return b.scratch
}

// gemmConfig returns the packgemm configuration matching the backend.
func (b *Backend) gemmConfig() *packgemm.Config {
	return &packgemm.Config{
		Pool:    b.pool,
		Scratch: b.scratch,
		Caches:  b.caches,
		Kernel:  b.kernel,
	}
}

// workersFor returns the pool to use for an element-wise operation on numElements: the backend's pool
// if it's large enough to be worth splitting, nil (sequential) otherwise.
func (b *Backend) workersFor(numElements int) *workerspool.Pool {
	if numElements <= b.minParallelSize {
		return nil
	}
	return b.pool
}
