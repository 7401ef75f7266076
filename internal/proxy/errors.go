package proxy

import "fmt"

type (
	InvalidRule struct {
		Prefix string
		Reason string
	}

	UpstreamUnavailable struct {
		Target string
		cause  error
	}
)

func (i InvalidRule) Error() string {
	return fmt.Sprintf("proxy: invalid rule for prefix %q, %v", i.Prefix, i.Reason)
}

func (u UpstreamUnavailable) Error() string {
	return fmt.Sprintf("proxy: upstream %v is unavailable, cause %v", u.Target, u.cause)
}

func (u UpstreamUnavailable) Unwrap() error {
	return u.cause
}
