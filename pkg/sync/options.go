package sync

// Option configures a Syncer.
type Option func(*Syncer)

// WithDryRun computes and reports the plan without applying any writes or
// moving the watermark.
func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) { s.dryRun = dryRun }
}

// WithAllowEmpty permits a full run whose snapshot came back empty to
// delete every target record. Without it such a run aborts as a suspected
// source failure.
func WithAllowEmpty(allowEmpty bool) Option {
	return func(s *Syncer) { s.allowEmpty = allowEmpty }
}
