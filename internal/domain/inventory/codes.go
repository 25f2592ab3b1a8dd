package inventory

import (
	"fmt"
	"time"
)

// CodeGenerator produces human-readable document numbers for movements
// and count sessions. Numbers identify documents on paperwork; the ledger
// stays keyed by UUID.
type CodeGenerator interface {
	AdjustmentNo() string
	TransferNo() string
	BatchTransferNo() string
	CountSessionNo() string
}

// timestampCodeGenerator issues codes from the current Unix millisecond,
// matching the numbering scheme of the upstream documents.
type timestampCodeGenerator struct {
	now func() time.Time
}

// NewCodeGenerator returns the default timestamp-based code generator
func NewCodeGenerator() CodeGenerator {
	return &timestampCodeGenerator{now: time.Now}
}

func (g *timestampCodeGenerator) AdjustmentNo() string {
	return fmt.Sprintf("ADJ-%d", g.now().UnixMilli())
}

func (g *timestampCodeGenerator) TransferNo() string {
	return fmt.Sprintf("TRF-%d", g.now().UnixMilli())
}

func (g *timestampCodeGenerator) BatchTransferNo() string {
	return fmt.Sprintf("BTF-%d", g.now().UnixMilli())
}

func (g *timestampCodeGenerator) CountSessionNo() string {
	return fmt.Sprintf("CNT-%d", g.now().UnixMilli())
}

// DeriveSplitBatchNo derives the batch number for the child of a partial
// batch transfer from the parent's number.
func DeriveSplitBatchNo(parentBatchNo string) string {
	return fmt.Sprintf("%s-T%d", parentBatchNo, time.Now().UnixMilli())
}
