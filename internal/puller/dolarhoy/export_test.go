package dolarhoy

// WithURL overrides the scraped page address.
func WithURL(u string) Options {
	return func(o *options) {
		o.url = u
	}
}
