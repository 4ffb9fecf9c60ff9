// Package orchestrator accepts render requests, runs the pipeline
// asynchronously on a bounded worker pool, reports progress through the job
// registry, and publishes outputs to the artifact store.
package orchestrator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/songmash/lisbon/internal/planner"
	"github.com/songmash/lisbon/internal/render"
)

// ErrInvalidRequest rejects malformed render requests before a job is
// created.
var ErrInvalidRequest = errors.New("invalid render request")

// StemURIs names one track's separated stem locations. Paths and file:// URIs
// are accepted. Stems a recipe does not route may be left empty.
type StemURIs struct {
	Vocals string `json:"vocals"`
	Drums  string `json:"drums"`
	Bass   string `json:"bass"`
	Other  string `json:"other"`
}

// Get returns the URI for a stem name.
func (s StemURIs) Get(stem string) string {
	switch stem {
	case render.StemVocals:
		return s.Vocals
	case render.StemDrums:
		return s.Drums
	case render.StemBass:
		return s.Bass
	case render.StemOther:
		return s.Other
	}
	return ""
}

// RequestStems groups both tracks' stems.
type RequestStems struct {
	A StemURIs `json:"a"`
	B StemURIs `json:"b"`
}

// Request is a complete render submission.
type Request struct {
	Stems RequestStems     `json:"stems"`
	Plan  planner.Plan     `json:"plan"`
	Mix   render.MixParams `json:"mixParams"`
}

var validate = validator.New()

// Validate checks the request shape. Missing stems for the chosen recipe are
// caught later by the renderer, where the routing table lives.
func (r Request) Validate() error {
	if !r.Plan.Recipe.Valid() {
		return fmt.Errorf("%w: %q", planner.ErrUnknownRecipe, r.Plan.Recipe)
	}
	if err := validate.Struct(r.Mix); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.Plan.Stretch.StretchA < 0.5 || r.Plan.Stretch.StretchA > 2.0 ||
		r.Plan.Stretch.StretchB < 0.5 || r.Plan.Stretch.StretchB > 2.0 {
		return fmt.Errorf("%w: stretch ratio out of range", ErrInvalidRequest)
	}
	return nil
}

// resolveURI maps a stem URI onto a local path. Only local stems are
// supported; remote stem fetch belongs to the storage façade's collaborators.
func resolveURI(uri string) (string, error) {
	if uri == "" {
		return "", nil
	}
	if strings.Contains(uri, "://") {
		u, err := url.Parse(uri)
		if err != nil || u.Scheme != "file" {
			return "", fmt.Errorf("%w: unsupported stem uri scheme", ErrInvalidRequest)
		}
		return u.Path, nil
	}
	return uri, nil
}
