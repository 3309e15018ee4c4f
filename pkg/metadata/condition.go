package metadata

import "fmt"

// Condition describes the observed physical state of a tool or kit.
type Condition string

const (
	ConditionGood     Condition = "good"
	ConditionDamaged  Condition = "damaged"
	ConditionMissing  Condition = "missing"
	ConditionObsolete Condition = "obsolete"
)

func NewCondition(value string) (Condition, error) {
	condition := Condition(value)
	if !condition.isValid() {
		return "", fmt.Errorf("invalid condition: %s", value)
	}
	return condition, nil
}

func (c Condition) isValid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionMissing, ConditionObsolete:
		return true
	default:
		return false
	}
}

// Problematic reports whether the condition should raise a damage report.
func (c Condition) Problematic() bool {
	switch c {
	case ConditionDamaged, ConditionMissing, ConditionObsolete:
		return true
	default:
		return false
	}
}
