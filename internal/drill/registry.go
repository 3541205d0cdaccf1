package drill

// Registry returns the built-in scenarios in run order. The cheap
// single-command checks come first so a broken fixture surfaces
// before the long drills start.
func Registry() []Scenario {
	return []Scenario{
		{
			Name:        "basic-cmd",
			Description: "write one key through the routed client and read it back",
			Run:         runBasicCmd,
		},
		{
			Name:        "basic-eval",
			Description: "round trip a value through a server-side EVAL script",
			Run:         runBasicEval,
		},
		{
			Name:        "basic-script",
			Description: "round trip a value through the EVALSHA script cache",
			Run:         runBasicScript,
		},
		{
			Name:        "basic-pipe",
			Description: "pipeline writes to keys on different slots and read them back",
			Run:         runBasicPipe,
		},
		{
			Name:        "failover",
			Description: "run the concurrent workload with a failover injected mid-flight",
			Run:         runFailover,
		},
		{
			Name:        "failover-randomized",
			Description: "repeat the failover drill with randomized request counts and values",
			Run:         runFailoverRandomized,
		},
	}
}

// Lookup returns the registered scenario with the given name.
func Lookup(name string) (Scenario, bool) {
	for _, sc := range Registry() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Names lists the registered scenario names in run order.
func Names() []string {
	return scenarioNames(Registry())
}

func scenarioNames(scenarios []Scenario) []string {
	names := make([]string, 0, len(scenarios))
	for _, sc := range scenarios {
		names = append(names, sc.Name)
	}
	return names
}
