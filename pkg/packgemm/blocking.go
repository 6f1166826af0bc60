// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packgemm

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// CacheSizes in bytes, used to derive the blocking parameters.
type CacheSizes struct {
	L1, L2, L3 int
}

// DefaultCacheSizes are conservative values for current desktop/server CPUs.
var DefaultCacheSizes = CacheSizes{
	L1: 32 * 1024,
	L2: 1024 * 1024,
	L3: 8 * 1024 * 1024,
}

// IsZero returns whether no cache size was set.
func (c CacheSizes) IsZero() bool {
	return c.L1 == 0 && c.L2 == 0 && c.L3 == 0
}

func (c CacheSizes) String() string {
	return fmt.Sprintf("L1=%s, L2=%s, L3=%s",
		humanize.IBytes(uint64(c.L1)), humanize.IBytes(uint64(c.L2)), humanize.IBytes(uint64(c.L3)))
}

// BlockingPlan holds the block sizes of one GEMM call.
type BlockingPlan struct {
	Mr int // Rows of the micro-tile, held in registers.
	Nr int // Columns of the micro-tile, held in registers.

	Kc int // Depth of the packed panels, sized for L1.
	Mc int // Rows of the packed A panel, sized for L2.
	Nc int // Columns of the packed B panel, sized for L3.
}

func (p BlockingPlan) String() string {
	return fmt.Sprintf("{Mr=%d, Nr=%d, Kc=%d, Mc=%d, Nc=%d}", p.Mr, p.Nr, p.Kc, p.Mc, p.Nc)
}

// Validate checks the invariants the engine relies on.
func (p BlockingPlan) Validate() error {
	if p.Mr <= 0 || p.Nr <= 0 || p.Kc <= 0 || p.Mc <= 0 || p.Nc <= 0 {
		return errors.Errorf("all block sizes must be positive, got %s", p)
	}
	if p.Mc%p.Mr != 0 {
		return errors.Errorf("Mc must be a multiple of Mr, got %s", p)
	}
	if p.Nc%p.Nr != 0 {
		return errors.Errorf("Nc must be a multiple of Nr, got %s", p)
	}
	return nil
}

// roundUp n to the next multiple of multiple.
func roundUp(n, multiple int) int {
	return (n + multiple - 1) / multiple * multiple
}

// roundDownMin rounds n down to a multiple of multiple, but not below multiple.
func roundDownMin(n, multiple int) int {
	return max(multiple, n/multiple*multiple)
}

// PlanBlocks derives the block sizes for an m x k x n product of elements of elemSize bytes,
// for a micro-kernel of mr x nr.
//
// Kc is chosen so that one A sliver and one B sliver fit in L1, Mc so that the packed A panel fits
// in L2, and Nc so that the packed B panel fits in L3. Blocks are clipped to the problem size, keeping
// Mc a multiple of mr and Nc a multiple of nr.
func PlanBlocks(m, k, n, elemSize, mr, nr int, caches CacheSizes) BlockingPlan {
	if caches.IsZero() {
		caches = DefaultCacheSizes
	}
	elemSize = max(elemSize, 1)
	plan := BlockingPlan{Mr: mr, Nr: nr}
	plan.Kc = max(1, min(caches.L1/((mr+nr)*elemSize), k))
	plan.Mc = min(roundDownMin(caches.L2/(plan.Kc*elemSize), mr), roundUp(max(m, 1), mr))
	plan.Nc = min(roundDownMin(caches.L3/(plan.Kc*elemSize), nr), roundUp(max(n, 1), nr))
	return plan
}

// SplitForWorkers shrinks Nc when the n dimension yields fewer n-blocks than workers, so each
// worker gets at least one. Nc stays a multiple of Nr.
func SplitForWorkers(plan BlockingPlan, n, numWorkers int) BlockingPlan {
	if numWorkers <= 1 || n <= 0 {
		return plan
	}
	numBlocks := (n + plan.Nc - 1) / plan.Nc
	if numBlocks >= numWorkers {
		return plan
	}
	perWorker := (n + numWorkers - 1) / numWorkers
	plan.Nc = max(plan.Nr, roundUp(perWorker, plan.Nr))
	return plan
}
