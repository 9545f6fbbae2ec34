package server

import (
	"errors"
	"net/http"
	"strings"
)

// userSession is the authenticated caller attached to the request
// context by authMiddleware.
type userSession struct {
	UserID      string
	Username    string
	Role        string
	DisplayName string
}

var errNoSession = errors.New("no valid session")

func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return "", errNoSession
	}
	return token, nil
}
