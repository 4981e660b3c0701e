package policy

// ViolationObserver is told the policy name of every violation recorded.
type ViolationObserver interface {
	ObserveViolation(policy string)
}

// ViolationObserverFunc adapts a function to ViolationObserver.
type ViolationObserverFunc func(policy string)

func (f ViolationObserverFunc) ObserveViolation(policy string) { f(policy) }
