package mfc

// Fields is an unordered bag of named write parameters passed to
// Driver.Write. Recognized keys are "setpoint", "pressure", "gas", "P", "D"
// and "I"; numeric values may be any Go integer or float type.
type Fields map[string]any

// Command is a closed union of caller intents. Exactly one variant is
// produced by ResolveCommand for any field bag.
type Command interface {
	isCommand()
}

// SetSetpoint requests a flow setpoint write.
type SetSetpoint struct {
	Value float32
}

// SetPressure requests a pressure setpoint write (ASCII transport only).
type SetPressure struct {
	Value float32
}

// SetGas requests a calibration gas selection (ASCII transport only).
type SetGas struct {
	Gas Gas
}

// SetPID requests a partial PID gain write.
type SetPID struct {
	Gains PIDSetpoints
}

// NoOp indicates that no recognized key was present.
type NoOp struct{}

func (SetSetpoint) isCommand() {}
func (SetPressure) isCommand() {}
func (SetGas) isCommand()      {}
func (SetPID) isCommand()      {}
func (NoOp) isCommand()        {}

// ResolveCommand maps a field bag onto exactly one Command variant,
// preferring setpoint, then pressure, then gas, then PID, in that fixed
// priority order when multiple keys are present simultaneously. The first
// match wins and the remaining keys are ignored.
//
// The first-match behavior is inherited from the historical dict-keyed
// dispatcher and is preserved deliberately; callers that need several
// writes must issue several Write calls.
func ResolveCommand(fields Fields) Command {
	if v, ok := floatField(fields, "setpoint"); ok {
		return SetSetpoint{Value: v}
	}

	if v, ok := floatField(fields, "pressure"); ok {
		return SetPressure{Value: v}
	}

	if raw, ok := fields["gas"]; ok {
		if g, ok := gasField(raw); ok {
			return SetGas{Gas: g}
		}
	}

	var gains PIDSetpoints
	hasGain := false
	if v, ok := intField(fields, "P"); ok {
		gains.P = &v
		hasGain = true
	}
	if v, ok := intField(fields, "D"); ok {
		gains.D = &v
		hasGain = true
	}
	if v, ok := intField(fields, "I"); ok {
		gains.I = &v
		hasGain = true
	}
	if hasGain {
		return SetPID{Gains: gains}
	}

	return NoOp{}
}

func floatField(fields Fields, key string) (float32, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	case int:
		return float32(v), true
	case int32:
		return float32(v), true
	case int64:
		return float32(v), true
	default:
		return 0, false
	}
}

func intField(fields Fields, key string) (int32, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case int:
		return int32(v), true
	case int32:
		return v, true
	case int64:
		return int32(v), true
	case float32:
		return int32(v), true
	case float64:
		return int32(v), true
	default:
		return 0, false
	}
}

func gasField(raw any) (Gas, bool) {
	switch v := raw.(type) {
	case Gas:
		return v, true
	case string:
		return GasByName(v), true
	case int:
		return GasByCode(v), true
	case int32:
		return GasByCode(int(v)), true
	case int64:
		return GasByCode(int(v)), true
	default:
		return Gas{}, false
	}
}
