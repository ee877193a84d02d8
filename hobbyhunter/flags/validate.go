package flags

import "sort"

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Warning is an advisory note about a questionable flag combination.
type Warning struct {
	Flag    Name
	Message string
}

func (w Warning) String() string {
	if w.Flag == "" {
		return w.Message
	}
	return string(w.Flag) + ": " + w.Message
}

// Validate inspects the effective flags for environment. Nothing it reports
// stops the application.
func (m *Manager) Validate(environment string) []Warning {
	values := m.All()
	var warnings []Warning

	if environment == EnvProduction {
		var experimental []Name
		for name, on := range values {
			if on && name.Experimental() {
				experimental = append(experimental, name)
			}
		}
		sort.Slice(experimental, func(i, j int) bool { return experimental[i] < experimental[j] })
		for _, name := range experimental {
			warnings = append(warnings, Warning{Flag: name, Message: "experimental feature enabled in production"})
		}
		if values[DebugLogging] {
			warnings = append(warnings, Warning{Flag: DebugLogging, Message: "debug logging enabled in production"})
		}
	}

	if environment == EnvDevelopment && values[Analytics] {
		warnings = append(warnings, Warning{Flag: Analytics, Message: "analytics enabled in development"})
	}

	anyReal := false
	for _, name := range RealAPIFlags {
		anyReal = anyReal || values[name]
	}
	if anyReal && !values[MockFallback] && environment != EnvProduction {
		warnings = append(warnings, Warning{Flag: MockFallback, Message: "real API enabled without mock fallback outside production"})
	}

	return warnings
}
