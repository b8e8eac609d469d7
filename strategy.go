package tripbench

// Strategy names. The benchmark always runs the eager strategy first; the
// comparator breaks ties in favor of the first-named strategy.
const (
	StrategyEager = "eager"
	StrategyLazy  = "lazy"
)

// strategyFactory builds a fresh engine for a single run. Engines are never
// reused across runs; all run state dies with the engine.
type strategyFactory func(cfg RunConfig) engine

var strategies = map[string]strategyFactory{
	StrategyEager: newEagerEngine,
	StrategyLazy:  newLazyEngine,
}
