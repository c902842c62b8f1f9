//go:build !profile

package prof

// Session is a no-op profiling session.
type Session struct{}

// Enabled reports whether profiling support is compiled in.
func Enabled() bool { return false }

// Start is a no-op when built without the "profile" tag.
func Start(_ Options) (*Session, error) {
	return &Session{}, nil
}

// Stop is a no-op when built without the "profile" tag.
func (*Session) Stop() error {
	return nil
}
