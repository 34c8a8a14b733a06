package mission

// Outcome classifies the terminal orbit. The decision table is evaluated once
// at mission end from the final periapsis and whether propellant ran out.
type Outcome int

const (
	// SuccessHighPrecision: orbit established with periapsis inside the
	// target band.
	SuccessHighPrecision Outcome = iota
	// SuccessAcceptable: stable orbit, periapsis outside the target band.
	SuccessAcceptable
	// PartialSuccess: positive periapsis below the stable-orbit floor.
	PartialSuccess
	// PartialFailure: ran dry after establishing a positive periapsis.
	PartialFailure
	// CriticalFailureDry: ran dry with periapsis still below the surface.
	CriticalFailureDry
	// CriticalFailure: propellant remained but the trajectory is suborbital.
	CriticalFailure
)

// Classification thresholds, meters of periapsis altitude.
const (
	stableOrbitFloor  = 70000
	precisionBandLow  = 74000
	precisionBandHigh = 76000
)

// Classify is a pure function of the fuel-empty flag and final periapsis.
func Classify(fuelEmpty bool, periapsis float64) Outcome {
	switch {
	case fuelEmpty && periapsis > 0:
		return PartialFailure
	case fuelEmpty:
		return CriticalFailureDry
	case periapsis >= stableOrbitFloor && periapsis >= precisionBandLow && periapsis <= precisionBandHigh:
		return SuccessHighPrecision
	case periapsis >= stableOrbitFloor:
		return SuccessAcceptable
	case periapsis > 0:
		return PartialSuccess
	default:
		return CriticalFailure
	}
}

// Success reports whether the outcome counts as a flown orbit (used for the
// process exit code).
func (o Outcome) Success() bool {
	switch o {
	case SuccessHighPrecision, SuccessAcceptable, PartialSuccess:
		return true
	}
	return false
}

func (o Outcome) String() string {
	switch o {
	case SuccessHighPrecision:
		return "success (high precision)"
	case SuccessAcceptable:
		return "success (acceptable precision)"
	case PartialSuccess:
		return "partial success (suboptimal orbit)"
	case PartialFailure:
		return "partial failure (ran dry, positive periapsis)"
	case CriticalFailureDry:
		return "critical failure (ran dry, suborbital)"
	default:
		return "critical failure (suborbital trajectory)"
	}
}
