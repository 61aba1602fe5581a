package sync

import "time"

// RetryPolicy bounds the profile-repair lookup loop. The attempt count
// and delay come from configuration instead of being buried as magic
// numbers at the call site, and Sleep is injectable so tests run the
// loop without real waiting.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Sleep    func(time.Duration)
}

// DefaultRetryPolicy tolerates typical provisioning-trigger latency:
// three attempts, 500ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 500 * time.Millisecond}
}

func (p RetryPolicy) sleep() {
	if p.Sleep != nil {
		p.Sleep(p.Delay)
		return
	}
	time.Sleep(p.Delay)
}

// Do runs fn up to Attempts times, sleeping Delay between attempts, and
// returns the first success or the last error. Retrying is only useful
// for not-found-yet style failures; fn decides when to keep going by
// returning a non-nil error.
func (p RetryPolicy) Do(fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			p.sleep()
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
