package application

// Recorder receives domain outcomes for metrics. Implementations must be safe
// for concurrent use.
type Recorder interface {
	LoginAttempt(outcome string)
	SessionRevoked(count int)
	BookingCreated(kind string)
	BookingRejected(reason string)
	BookingTransitioned(from, to string)
}

type nopRecorder struct{}

func (nopRecorder) LoginAttempt(string)                {}
func (nopRecorder) SessionRevoked(int)                 {}
func (nopRecorder) BookingCreated(string)              {}
func (nopRecorder) BookingRejected(string)             {}
func (nopRecorder) BookingTransitioned(string, string) {}

func defaultRecorder(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
