package main

import (
	"net/http"
	"time"
)

// externalHTTPClient is shared by all content-store calls. The solve
// capability manages its own deadlines and does not use it.
const externalHTTPTimeout = 30 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}
