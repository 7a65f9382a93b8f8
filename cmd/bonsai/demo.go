package main

import (
	"errors"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

var errNetworkFailure = errors.New("network failure")

// assetError carries a reason and describes itself in logs by it.
type assetError struct {
	reason string
}

func (e *assetError) Error() string { return "asset error: " + e.reason }

// Diagnostic implements bonsai.Diagnostic.
func (e *assetError) Diagnostic() string { return e.reason }

// runDemo logs one of each kind of event through l: plain messages,
// metadata with string and integer keys, a list value, and errors.
func runDemo(l *bonsai.Logger) {
	l.Log(bonsai.Verbose, "verbose", bonsai.Caller(0))
	bonsai.Message("TESTING").Log(l, bonsai.Verbose)

	bonsai.Metadata{"name": "Henry", "age": 6}.Log(l)
	bonsai.Metadata{1: "The first item", 2: "The second item"}.Log(l)
	bonsai.Metadata{
		"names": []string{"Mr. Orange", "Mr. Blonde", "Nice guy Eddie", "Mr. Pink", "Mr. Blue"},
	}.Log(l)

	bonsai.LogErr(l, errNetworkFailure, bonsai.Warning)
	bonsai.LogErr(l, &assetError{reason: "Asset fetching error"}, bonsai.Warning)
}
