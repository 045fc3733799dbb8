// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package auth defines the authorization step every request passes
// through before the execution service admits it, and provides common
// authorizers.
//
// Authorizers may block, for example to refresh a token. The execution
// service runs them off its serial scheduling context.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogama/httpexec/request"
)

// ErrRejected is wrapped by every error an Authorizer in this package
// returns to reject a request.
var ErrRejected = errors.New("httpexec/auth: request rejected")

// An Authorizer authorizes a request, returning the request to execute
// (typically a copy of r with credentials attached) or an error.
//
// Authorizers must not modify r. Implementations must be safe for
// concurrent use by multiple goroutines.
type Authorizer interface {
	Authorize(ctx context.Context, r *request.Request) (*request.Request, error)
}

// The AuthorizerFunc type is an adapter to allow the use of ordinary
// functions as authorizers.
type AuthorizerFunc func(ctx context.Context, r *request.Request) (*request.Request, error)

// Authorize calls f(ctx, r).
func (f AuthorizerFunc) Authorize(ctx context.Context, r *request.Request) (*request.Request, error) {
	return f(ctx, r)
}

// A Chain runs authorizers in order, each receiving the request the
// previous one returned. The first error stops the chain.
type Chain []Authorizer

// Authorize implements Authorizer. Errors are returned wrapping
// ErrRejected.
func (c Chain) Authorize(ctx context.Context, r *request.Request) (*request.Request, error) {
	for _, a := range c {
		if err := ctx.Err(); err != nil {
			return nil, reject(err)
		}
		next, err := a.Authorize(ctx, r)
		if err != nil {
			return nil, reject(err)
		}
		if next != nil {
			r = next
		}
	}
	return r, nil
}

// Header returns an authorizer that sets header key to value.
func Header(key, value string) Authorizer {
	return AuthorizerFunc(func(_ context.Context, r *request.Request) (*request.Request, error) {
		r2 := r.Clone()
		r2.Header.Set(key, value)
		return r2, nil
	})
}

// Basic returns an authorizer that sets HTTP Basic credentials.
func Basic(username, password string) Authorizer {
	return AuthorizerFunc(func(_ context.Context, r *request.Request) (*request.Request, error) {
		r2 := r.Clone()
		r2.SetBasicAuth(username, password)
		return r2, nil
	})
}

// Bearer returns an authorizer that sets a bearer token obtained from
// src on the Authorization header.
func Bearer(src TokenSource) Authorizer {
	if src == nil {
		panic("httpexec/auth: nil token source")
	}
	return AuthorizerFunc(func(ctx context.Context, r *request.Request) (*request.Request, error) {
		tok, err := src.Token(ctx)
		if err != nil {
			return nil, reject(err)
		}
		if tok == "" {
			return nil, fmt.Errorf("%w: empty bearer token", ErrRejected)
		}
		r2 := r.Clone()
		r2.Header.Set("Authorization", "Bearer "+tok)
		return r2, nil
	})
}

func reject(err error) error {
	if errors.Is(err, ErrRejected) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRejected, err)
}
