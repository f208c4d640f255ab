//go:build !ORT

package provider

import "github.com/knights-analytics/hugot"

const hugotRuntime = "go"

func newHugotSession() (*hugot.Session, error) {
	return hugot.NewGoSession()
}
