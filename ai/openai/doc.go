// Package openai provides an ai.Embedder backed by any OpenAI-compatible
// embedding API (OpenAI, Ollama, LocalAI, vLLM).
package openai
