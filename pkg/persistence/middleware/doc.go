// Package middleware provides SessionStore decorators: encryption at rest and
// PII masking of conversation history.
package middleware
