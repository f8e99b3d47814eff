package ir

// This file classifies instructions by their memory effects.
// Calls are opaque: nothing is known about what they touch.

// MemoryEffect describes how an instruction interacts with memory
type MemoryEffect int

const (
	EffectNone    MemoryEffect = iota // pure computation or control flow
	EffectRead                        // reads its address operand
	EffectWrite                       // writes its address operand
	EffectUnknown                     // may read or write anything
)

func (e MemoryEffect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectRead:
		return "read"
	case EffectWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Effects returns the memory effect of inst
func Effects(inst Instruction) MemoryEffect {
	switch inst.(type) {
	case *LoadInstruction:
		return EffectRead
	case *StoreInstruction:
		return EffectWrite
	case *CallInstruction:
		return EffectUnknown
	default:
		// alloca only reserves a fresh location; binary ops and terminators
		// never touch memory
		return EffectNone
	}
}

// MayWrite reports whether inst can change the contents of some location
func MayWrite(inst Instruction) bool {
	e := Effects(inst)
	return e == EffectWrite || e == EffectUnknown
}

// IsDead reports whether inst produces a result nobody reads and could be
// removed without changing behavior. FoldConstants never removes anything;
// this only feeds diagnostics and printer annotations.
func IsDead(inst Instruction) bool {
	result := inst.GetResult()
	return result != nil && !result.HasUses() && !MayWrite(inst)
}
