// Package oracle defines the suggestion interface the pipeline consumes
// and its production implementation backed by an OpenRouter-compatible
// chat completion API.
package oracle
