// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package resolve

import (
	"testing"

	"github.com/gogama/httpexec/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	s := NewStatic(map[string][]string{
		"Host":          {"203.0.113.5", "203.0.113.6"},
		"empty.example": nil,
	})
	assert.Equal(t, []string{"203.0.113.5", "203.0.113.6"}, s.AddressesForHost("host"))
	assert.Equal(t, []string{"203.0.113.5", "203.0.113.6"}, s.AddressesForHost("HOST:443"))
	assert.Nil(t, s.AddressesForHost("empty.example"))
	assert.Nil(t, s.AddressesForHost("other"))
}

func TestRewrite(t *testing.T) {
	static := NewStatic(map[string][]string{
		"host": {"203.0.113.5"},
		"v6":   {"2001:db8::1"},
	})
	testCases := []struct {
		name     string
		res      Resolver
		url      string
		expected string
		host     string
	}{
		{"override", static, "https://host/thing", "https://203.0.113.5/thing", "host"},
		{"override with port", static, "http://host:8080/thing?q=1", "http://203.0.113.5:8080/thing?q=1", "host:8080"},
		{"ipv6 override", static, "http://v6/x", "http://[2001:db8::1]/x", "v6"},
		{"no override", static, "https://other/thing", "https://other/thing", ""},
		{"nil resolver", nil, "https://host/thing", "https://host/thing", ""},
		{"func resolver", ResolverFunc(func(string) []string { return []string{"198.51.100.1"} }), "http://any/", "http://198.51.100.1/", "any"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			r, err := request.New("GET", testCase.url, nil)
			require.NoError(t, err)
			r2 := Rewrite(testCase.res, r)
			assert.Equal(t, testCase.expected, r2.URL.String())
			assert.Equal(t, testCase.host, r2.Host)
			assert.Equal(t, testCase.url, r.URL.String())
			assert.Empty(t, r.Host)
		})
	}
}

func TestRewrite_KeepsExplicitHost(t *testing.T) {
	r, err := request.New("GET", "https://host/thing", nil)
	require.NoError(t, err)
	r.Host = "virtual.example"
	r2 := Rewrite(NewStatic(map[string][]string{"host": {"203.0.113.5"}}), r)
	assert.Equal(t, "virtual.example", r2.Host)
	assert.Equal(t, "203.0.113.5", r2.URL.Host)
}
