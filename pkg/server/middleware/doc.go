// Package middleware holds HTTP middleware shared by the endpoints.
package middleware
