package api

import (
	"errors"
	"net/url"

	"github.com/rs/zerolog/log"
)

const (
	loginPath   = "/login"
	pricingPath = "/pricing"
)

// Navigator receives the navigation side effects the web client
// expresses as window.location changes: the login redirect after an
// unrecoverable auth failure and the pricing redirect on quota
// exhaustion. The CLI's default implementation tells the user where to
// go; tests inject a recording fake.
type Navigator interface {
	Navigate(path string)
}

// LogNavigator logs the target path. It is the default Navigator.
type LogNavigator struct{}

func (LogNavigator) Navigate(path string) {
	log.Warn().Str("path", path).Msg("action required, open this page in the app")
}

// loginURL builds the login path carrying the interrupted location as a
// return target.
func loginURL(next string) string {
	if next == "" {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

// pricingURL builds the pricing path carrying the server's quota
// message.
func pricingURL(reason string) string {
	if reason == "" {
		return pricingPath
	}
	return pricingPath + "?reason=" + url.QueryEscape(reason)
}

// quotaRedirect sends the navigator to the pricing page when err is a
// quota refusal, passing the error through either way. Creation calls
// route their errors here so a 402 never starts a poll.
func (c *Client) quotaRedirect(err error) error {
	var quota *QuotaError
	if errors.As(err, &quota) {
		c.navigator.Navigate(pricingURL(quota.Reason))
	}
	return err
}
