package fred

// WithBaseURL overrides the FRED observations endpoint.
func WithBaseURL(u string) Options {
	return func(o *options) {
		o.baseURL = u
	}
}
