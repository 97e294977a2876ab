// Command flowopt runs the particle swarm against one of the built-in
// benchmark functions and logs the search to sqlite, csv, and a
// convergence plot.  It exists to exercise the full optimizer stack
// without a simulator attached; wiring a live process model means
// swapping the bench objective for an objective.Evaluator.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fluxsim/flowopt"
	"github.com/fluxsim/flowopt/bench"
	"github.com/fluxsim/flowopt/swarm"
	"github.com/fluxsim/flowopt/visual"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "flowopt:", err)
		os.Exit(1)
	}
}

func run() error {
	pflag.String("func", "Ackley", "benchmark function name")
	pflag.Int("particles", 30, "swarm size")
	pflag.Int("iters", 200, "number of iterations")
	pflag.Int64("seed", 1, "random seed")
	pflag.String("db", "", "sqlite file for per-iteration logging (empty disables)")
	pflag.String("csv", "", "csv file for per-iteration particle state (empty disables)")
	pflag.String("plot", "", "convergence plot file (empty disables)")
	pflag.String("config", "", "config file (overridden by flags)")
	pflag.Bool("verbose", false, "log every iteration")
	pflag.Parse()

	v := viper.New()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return err
	}
	v.SetEnvPrefix("flowopt")
	v.AutomaticEnv()
	if cfg := v.GetString("config"); cfg != "" {
		v.SetConfigFile(cfg)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	log := zap.NewNop()
	if v.GetBool("verbose") {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync()
	}

	fn, err := lookup(v.GetString("func"))
	if err != nil {
		return err
	}

	flowopt.SetSeed(v.GetInt64("seed"))

	opts := []swarm.Option{swarm.Logger(log)}
	hist := &swarm.History{}
	opts = append(opts, swarm.OnIteration(hist.Record))

	if path := v.GetString("db"); path != "" {
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return fmt.Errorf("opening %v: %w", path, err)
		}
		defer db.Close()
		opts = append(opts, swarm.DB(db))
	}
	if path := v.GetString("csv"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %v: %w", path, err)
		}
		defer f.Close()
		opts = append(opts, swarm.OnIteration(swarm.CSVRecorder(f)))
	}

	low, up := fn.Bounds()
	o, err := swarm.New(low, up, v.GetInt("particles"), opts...)
	if err != nil {
		return err
	}

	best, neval, err := o.Run(flowopt.SimpleObjectiver(fn.Eval), v.GetInt("iters"))
	if err != nil {
		return err
	}

	fmt.Printf("run %v\n", o.RunID())
	fmt.Printf("[%v] best %v at %v (%v evaluations)\n", fn.Name(), best.Val, best.Pos(), neval)
	for _, opt := range fn.Optima() {
		fmt.Printf("  known optimum %v at %v\n", opt.Val, opt.Pos())
	}

	if path := v.GetString("plot"); path != "" {
		if err := visual.Convergence(hist, path); err != nil {
			return err
		}
		fmt.Printf("convergence plot written to %v\n", path)
	}
	return nil
}

func lookup(name string) (bench.Func, error) {
	for _, fn := range bench.AllFuncs {
		if strings.EqualFold(fn.Name(), name) {
			return fn, nil
		}
	}
	names := make([]string, len(bench.AllFuncs))
	for i, fn := range bench.AllFuncs {
		names[i] = fn.Name()
	}
	return nil, fmt.Errorf("unknown function %q (have %v)", name, strings.Join(names, ", "))
}
