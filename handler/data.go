package handler

import (
	"errors"
	"math/rand/v2"
	"net/http"
)

// Source yields uniformly distributed integers. *rand.Rand from math/rand/v2
// satisfies it.
type Source interface {
	Uint64() uint64
}

type globalSource struct{}

func (globalSource) Uint64() uint64 { return rand.Uint64() }

// GlobalSource draws from the process-wide math/rand/v2 generator.
var GlobalSource Source = globalSource{}

// Outcome is the branch a /data request takes.
type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeUnprocessable
	OutcomeSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailure:
		return "failure"
	case OutcomeUnprocessable:
		return "unprocessable"
	case OutcomeSuccess:
		return "success"
	}
	return "unknown"
}

// Draw picks an outcome as one draw from src modulo 3.
func Draw(src Source) Outcome {
	return Outcome(src.Uint64() % 3)
}

// UnprocessableMessage is the body of a 422 from the data route.
const UnprocessableMessage = "Could not fetch our data"

var errDataFetch = errors.New("simulated data fetch failure")

// Data serves the simulated data fetch.
type Data struct {
	// Source defaults to GlobalSource.
	Source Source
	// Fragment is written on success.
	Fragment []byte
	// Observe, if set, is called with every outcome drawn.
	Observe func(Outcome)
}

func (d *Data) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	src := d.Source
	if src == nil {
		src = GlobalSource
	}
	o := Draw(src)
	if d.Observe != nil {
		d.Observe(o)
	}

	switch o {
	case OutcomeFailure:
		return errDataFetch
	case OutcomeUnprocessable:
		return Unprocessable(UnprocessableMessage)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(d.Fragment)
	return nil
}
