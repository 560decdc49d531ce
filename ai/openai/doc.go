// Package openai implements the ai.Embedder interface against any
// OpenAI-compatible embedding endpoint (Ollama, LocalAI, vLLM, OpenAI).
package openai
