/*Package tripbench benchmarks an identical ETL workload over the NYC yellow
taxi trip dataset under two execution strategies: an eager, single-threaded
row pipeline, and a lazy plan-building engine that defers I/O until the plan
is executed and then fans work out across a bounded pool of workers.

The pipeline itself is fixed: Load, Clean, Aggregate, Sort & Filter, Save.
Each run produces a metrics record of per-stage wall-clock times which is
persisted to a JSON store, one document per strategy. A comparator reads two
stored records, computes per-stage and overall speedups, and emits a console
report plus a persisted comparison table.

Runs are strictly sequential. The driver inserts a configurable cooldown
delay between the two runs so that the second, CPU-bound run is not measured
against a thermally throttled machine.
*/
package tripbench
