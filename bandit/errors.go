package bandit

import "errors"

var (
	// ErrScheduleExhausted reports that every precomputed sample set has been
	// consumed while queries remain. It is an expected stop condition near the
	// end of a stream, not a crash.
	ErrScheduleExhausted = errors.New("sample schedule exhausted")

	// ErrSampleOutOfRange reports a sampled query index outside [0, cur_query).
	// It means the window schedule broke its construction contract.
	ErrSampleOutOfRange = errors.New("sampled query index out of range")

	// ErrMisalignedBookkeeping reports timing logs whose length diverged from
	// the selection history.
	ErrMisalignedBookkeeping = errors.New("timing logs misaligned with selection history")
)
