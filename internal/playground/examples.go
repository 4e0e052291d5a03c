// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package playground

import "fmt"

var examplePrompts = []string{
	"Explain quantum computing in simple terms",
	"Write a short poem about technology",
	"What are the best practices for React development?",
	"Help me debug this error: TypeError: Cannot read property 'map' of undefined",
}

// ExamplePrompts returns the starter prompts offered in the UI.
func ExamplePrompts() []string {
	out := make([]string, len(examplePrompts))
	copy(out, examplePrompts)
	return out
}

// Example returns the n-th example prompt, counting from 1.
func Example(n int) (string, error) {
	if n < 1 || n > len(examplePrompts) {
		return "", fmt.Errorf("example %d out of range (1-%d)", n, len(examplePrompts))
	}
	return examplePrompts[n-1], nil
}
