package runner

// WithRunID overrides the generator of run ids.
func WithRunID(f func() string) Options {
	return func(o *options) {
		o.newRunID = f
	}
}
