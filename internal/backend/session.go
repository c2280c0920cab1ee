package backend

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotLoggedIn is returned before any request when no user identity is known.
var ErrNotLoggedIn = errors.New("Please Login.")

// SessionContext identifies the user whose records are loaded.
type SessionContext struct {
	UserID string
	// Token is sent as a bearer credential to endpoints that require it.
	Token string
}

// Validate reports ErrNotLoggedIn when the session has no user id.
func (s SessionContext) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrNotLoggedIn
	}
	return nil
}

// Resource names one of the read endpoints.
type Resource string

const (
	Accounts     Resource = "accounts"
	Transactions Resource = "transactions"
	Budgets      Resource = "budgets"
	Goals        Resource = "goals"
)

// Resources lists every endpoint fetched for a snapshot.
var Resources = []Resource{Accounts, Transactions, Budgets, Goals}

// Endpoint describes how one resource is requested.
type Endpoint struct {
	Resource Resource
	URL      string
	Auth     bool
}

// Endpoints builds the request table for userID under base.
func Endpoints(base, userID string) map[Resource]Endpoint {
	base = strings.TrimRight(base, "/")
	q := url.QueryEscape(userID)
	return map[Resource]Endpoint{
		Accounts:     {Resource: Accounts, URL: fmt.Sprintf("%s/accounts/?user_id=%s", base, q)},
		Transactions: {Resource: Transactions, URL: fmt.Sprintf("%s/transactions/?user_id=%s", base, q)},
		Budgets:      {Resource: Budgets, URL: fmt.Sprintf("%s/budgets/noauth/%s", base, url.PathEscape(userID)), Auth: true},
		Goals:        {Resource: Goals, URL: fmt.Sprintf("%s/goals/?user_id=%s", base, q)},
	}
}

// HTTPError is a non-success response from the backend.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s failed: %d %s — %s", e.Method, e.URL, e.StatusCode, e.Status, e.Body)
}
