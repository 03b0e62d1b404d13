// Package file provides the TOML-backed driven.ConfigStore.
//
// The file lives at ~/.pulseiq/config.toml unless another directory is
// given. Tables are flattened into dot-notation keys on load, so
//
//	[llm]
//	provider = "anthropic"
//
// is read as "llm.provider".
package file
