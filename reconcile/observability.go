package reconcile

// RequestObservation captures one HTTP exchange with the registry.
type RequestObservation struct {
	ToolName   string
	Method     string
	StatusCode int
	DurationMS int64
	ErrorCode  string
}

// ReconcileObservation captures the terminal outcome for one groove.
type ReconcileObservation struct {
	ToolName   string
	File       string
	Result     Result
	Requests   int
	DurationMS int64
	ErrorCode  string
}

// Observer receives reconciliation observability events.
type Observer interface {
	ObserveRequest(observation RequestObservation)
	ObserveReconcile(observation ReconcileObservation)
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(RequestObservation)     {}
func (noopObserver) ObserveReconcile(ReconcileObservation) {}
