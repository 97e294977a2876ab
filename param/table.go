package param

import (
	"strings"

	"github.com/fluxsim/flowopt/sim"
)

// Reserved declaration-table variable names.  A row named TopPressureVar
// declares a linked-pressure parameter and must carry the adjacent
// bottom-pressure cell.
const (
	TopPressureVar    = "Top Stage Press"
	BottomPressureVar = "Bottom Stage Press"
)

// Row is one line of the parameter declaration table exported by the
// simulation (variable, lower bound, upper bound).  Linked is the adjacent
// bottom-pressure cell and is only consulted for TopPressureVar rows.
type Row struct {
	Name   string
	Lower  float64
	Upper  float64
	Unit   string
	Handle sim.Handle
	Linked sim.Handle
}

// ColumnLink supplies the live column readers a linked-pressure row needs.
// A nil Drop uses DefaultPressureDrop.
type ColumnLink struct {
	Stages      StageCountFunc
	CondenserDP ReadFunc
	ReboilerDP  ReadFunc
	Drop        DropFunc
}

// ColumnLinkFor builds a ColumnLink that reads stage count and vessel
// pressure drops from col through the oracle on every apply.
func ColumnLinkFor(o sim.Oracle, col sim.Entity) ColumnLink {
	return ColumnLink{
		Stages: func() (int, error) {
			v, err := o.Read(col, sim.QtyStageCount, "")
			return int(v), err
		},
		CondenserDP: func() (float64, error) {
			return o.Read(col, sim.QtyCondenserDropKPa, "kPa")
		},
		ReboilerDP: func() (float64, error) {
			return o.Read(col, sim.QtyReboilerDropKPa, "kPa")
		},
	}
}

// LoadTable scans the declaration table in order and registers one
// parameter per row.  A row with an empty variable name terminates the
// scan; a TopPressureVar row without its linked bottom-pressure cell is a
// configuration error.
func (r *Registry) LoadTable(rows []Row, link ColumnLink) error {
	for i, row := range rows {
		if row.Name == "" {
			break
		}
		if strings.EqualFold(row.Name, TopPressureVar) {
			if row.Linked == nil {
				return configf("table row %d (%q): missing linked bottom-pressure cell", i+1, row.Name)
			}
			err := r.LinkedPressure(row.Name, row.Lower, row.Upper, row.Unit,
				row.Handle, row.Linked, link.Stages, link.CondenserDP, link.ReboilerDP, link.Drop)
			if err != nil {
				return err
			}
			continue
		}
		if err := r.Scalar(row.Name, row.Lower, row.Upper, row.Unit, row.Handle); err != nil {
			return err
		}
	}
	return nil
}
