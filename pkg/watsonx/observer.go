package watsonx

import "time"

// Observer receives request outcomes. Implementations must be safe for
// concurrent use; batch items report from their own goroutines.
type Observer interface {
	// ObserveRequest is called once per operation with its final error,
	// nil on success.
	ObserveRequest(op string, err error, d time.Duration)

	// ObserveParseError is called for every stream line that was skipped
	// because its payload was not valid JSON.
	ObserveParseError(op string)

	// ObserveBatchItem is called once per batch item with its error, nil
	// on success.
	ObserveBatchItem(err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, error, time.Duration) {}

func (nopObserver) ObserveParseError(string) {}

func (nopObserver) ObserveBatchItem(error) {}
