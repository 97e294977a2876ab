// Package sim defines the boundary between the optimizer and the external
// process simulator.  The core never reaches past the Oracle interface; the
// automation layer that owns the real simulator session implements it.
package sim

// Handle identifies one writable variable inside the simulator, e.g. an
// imported spreadsheet cell or a column feed-location spec.  The core
// treats handles as opaque and only passes them back to the oracle.
type Handle interface {
	Name() string
}

// Entity identifies one costed unit operation inside the simulation, such
// as a distillation column or a heat exchanger.  Class groups entities for
// cost-function dispatch.
type Entity interface {
	Name() string
	Class() string
}

// Entity class tags understood by the stock cost functions.
const (
	ClassColumns    = "columns"
	ClassExchangers = "heatexchangers"
)

// Quantity names a physical result readable from an entity.
type Quantity string

const (
	QtyCondenserDutyKW  Quantity = "condenser_duty"
	QtyReboilerDutyKW   Quantity = "reboiler_duty"
	QtyCondenserInletC  Quantity = "condenser_inlet_temp"
	QtyCondenserOutletC Quantity = "condenser_outlet_temp"
	QtyReboilerInletC   Quantity = "reboiler_inlet_temp"
	QtyReboilerOutletC  Quantity = "reboiler_outlet_temp"
	QtyColumnDiameterM  Quantity = "column_diameter"
	QtyCondenserDropKPa Quantity = "condenser_pressure_drop"
	QtyReboilerDropKPa  Quantity = "reboiler_pressure_drop"
	QtyStageCount       Quantity = "stage_count"
	QtyDutyKW           Quantity = "duty"
	QtyInletTempC       Quantity = "inlet_temp"
	QtyOutletTempC      Quantity = "outlet_temp"
)

// Oracle is the contract the optimizer core requires from the simulator
// connection layer.  Run is asynchronous from the caller's perspective:
// after Run returns, Solving must be polled until the solver finishes, then
// Converged reports whether the entity reached a usable solution.
//
// The oracle is a single stateful instance.  Calls are never made
// concurrently and implementations need not be safe for concurrent use.
type Oracle interface {
	// Apply sets one external parameter.
	Apply(h Handle, value float64, unit string) error
	// Reset clears prior run state for one costed entity so a fresh run is
	// not contaminated by leftovers from a failed one.
	Reset(e Entity) error
	// Run triggers a solve for one entity.
	Run(e Entity) error
	// Solving reports whether the entity's solver is still working.
	Solving(e Entity) (bool, error)
	// Converged reports whether the entity's last solve converged.
	Converged(e Entity) (bool, error)
	// Read returns a physical result used by cost functions.
	Read(e Entity, q Quantity, unit string) (float64, error)
}
